package app

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/x/document"
	"github.com/iov-one/docseal/x/sigs"
)

// Tx is the only transaction format the ledger accepts. It carries
// signatures and exactly one message.
type Tx struct {
	Signatures []*sigs.StdSignature

	CreateDocument      *document.CreateMsg
	SignDocument        *document.SignMsg
	UpdateBlobRef       *document.UpdateBlobRefMsg
	AppendSignedVersion *document.AppendSignedVersionMsg
	IssueSigner         *document.IssueSignerMsg
	RevokeSigner        *document.RevokeSignerMsg
	Authorize           *document.AuthorizeMsg
	UpdateConfiguration *document.UpdateConfigurationMsg
}

var (
	_ docseal.Tx    = (*Tx)(nil)
	_ sigs.SignedTx = (*Tx)(nil)
)

// NewTx returns an unsigned transaction carrying given message.
func NewTx(msg docseal.Msg) (*Tx, error) {
	var tx Tx
	switch m := msg.(type) {
	case *document.CreateMsg:
		tx.CreateDocument = m
	case *document.SignMsg:
		tx.SignDocument = m
	case *document.UpdateBlobRefMsg:
		tx.UpdateBlobRef = m
	case *document.AppendSignedVersionMsg:
		tx.AppendSignedVersion = m
	case *document.IssueSignerMsg:
		tx.IssueSigner = m
	case *document.RevokeSignerMsg:
		tx.RevokeSigner = m
	case *document.AuthorizeMsg:
		tx.Authorize = m
	case *document.UpdateConfigurationMsg:
		tx.UpdateConfiguration = m
	default:
		return nil, errors.Wrapf(errors.ErrType, "unsupported message %T", msg)
	}
	return &tx, nil
}

// GetMsg returns the single message of this transaction.
func (tx *Tx) GetMsg() (docseal.Msg, error) {
	var msgs []docseal.Msg
	if tx.CreateDocument != nil {
		msgs = append(msgs, tx.CreateDocument)
	}
	if tx.SignDocument != nil {
		msgs = append(msgs, tx.SignDocument)
	}
	if tx.UpdateBlobRef != nil {
		msgs = append(msgs, tx.UpdateBlobRef)
	}
	if tx.AppendSignedVersion != nil {
		msgs = append(msgs, tx.AppendSignedVersion)
	}
	if tx.IssueSigner != nil {
		msgs = append(msgs, tx.IssueSigner)
	}
	if tx.RevokeSigner != nil {
		msgs = append(msgs, tx.RevokeSigner)
	}
	if tx.Authorize != nil {
		msgs = append(msgs, tx.Authorize)
	}
	if tx.UpdateConfiguration != nil {
		msgs = append(msgs, tx.UpdateConfiguration)
	}

	switch len(msgs) {
	case 0:
		return nil, errors.Wrap(errors.ErrMsg, "transaction without a message")
	case 1:
		return msgs[0], nil
	default:
		return nil, errors.Wrapf(errors.ErrMsg, "transaction with %d messages", len(msgs))
	}
}

// GetSignatures returns all signatures of this transaction.
func (tx *Tx) GetSignatures() []*sigs.StdSignature {
	return tx.Signatures
}

// GetSignBytes returns the serialized transaction without signatures.
func (tx *Tx) GetSignBytes() ([]byte, error) {
	unsigned := *tx
	unsigned.Signatures = nil
	return unsigned.Marshal()
}

// Sign appends a signature of given key. The nonce must be the next
// sequence of the signer account, see sigs.NextNonce.
func (tx *Tx) Sign(signer crypto.Signer, chainID string, nonce int64) error {
	sig, err := sigs.SignTx(signer, tx, chainID, nonce)
	if err != nil {
		return errors.Wrap(err, "sign")
	}
	tx.Signatures = append(tx.Signatures, sig)
	return nil
}

func (tx *Tx) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(tx)
}

func (tx *Tx) Unmarshal(raw []byte) error {
	return docseal.UnmarshalBinary(raw, tx)
}

// DecodeTx is the docseal.TxDecoder of the ledger.
func DecodeTx(raw []byte) (docseal.Tx, error) {
	if len(raw) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "transaction")
	}
	var tx Tx
	if err := tx.Unmarshal(raw); err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}
	return &tx, nil
}
