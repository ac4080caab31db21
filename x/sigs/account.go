package sigs

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/orm"
)

const BucketName = "sigs"

// maxSequence is the greatest nonce a javascript client holds exactly.
const maxSequence = 1<<53 - 1

// UserData is the account of a key. Sequence is the nonce its next
// transaction must be signed with.
type UserData struct {
	Pubkey   *crypto.PublicKey
	Sequence int64
}

var _ orm.Model = (*UserData)(nil)

func (u *UserData) Validate() error {
	var errs error
	switch {
	case u.Sequence < 0:
		errs = errors.AppendField(errs, "Sequence", ErrInvalidSequence)
	case u.Sequence > 0 && u.Pubkey == nil:
		errs = errors.Append(errs, errors.Field("Sequence", ErrInvalidSequence, "account without a key"))
	}
	if u.Pubkey != nil {
		errs = errors.AppendField(errs, "Pubkey", u.Pubkey.Validate())
	}
	return errs
}

func (u *UserData) Copy() orm.Model {
	cp := *u
	return &cp
}

func (u *UserData) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(u)
}

func (u *UserData) Unmarshal(raw []byte) error {
	return docseal.UnmarshalBinary(raw, u)
}

// CheckAndIncrementSequence consumes the nonce expected. Any other value,
// a replay included, is rejected.
func (u *UserData) CheckAndIncrementSequence(expected int64) error {
	if u.Sequence != expected {
		return errors.Wrapf(ErrInvalidSequence, "want %d, got %d", u.Sequence, expected)
	}
	if u.Sequence >= maxSequence {
		return errors.Wrap(ErrInvalidSequence, "sequence out of range")
	}
	u.Sequence++
	return nil
}

// Bucket stores accounts by address.
type Bucket struct {
	orm.Bucket
}

func NewBucket() Bucket {
	return Bucket{Bucket: orm.NewBucket(BucketName, &UserData{})}
}

// GetOrCreate loads the account of pubkey. An unknown key gets a fresh
// account at nonce zero, which is not saved.
func (b Bucket) GetOrCreate(db docseal.ReadOnlyKVStore, pubkey *crypto.PublicKey) (*UserData, error) {
	var acc UserData
	err := b.One(db, pubkey.Address(), &acc)
	switch {
	case err == nil:
		return &acc, nil
	case errors.ErrNotFound.Is(err):
		return &UserData{Pubkey: pubkey}, nil
	default:
		return nil, err
	}
}

// AccountKey is the store key of the account of addr.
func AccountKey(addr docseal.Address) []byte {
	return NewBucket().DBKey(addr)
}

// NextNonce is the nonce the next transaction signed by addr must use.
func NextNonce(db docseal.ReadOnlyKVStore, addr docseal.Address) (int64, error) {
	var acc UserData
	err := NewBucket().One(db, addr, &acc)
	switch {
	case err == nil:
		return acc.Sequence, nil
	case errors.ErrNotFound.Is(err):
		return 0, nil
	default:
		return 0, errors.Wrap(err, "account")
	}
}

// ContentionKeys lists the account keys a transaction writes. Transactions
// sharing a signer touch the same nonce and must not run in parallel.
func ContentionKeys(tx docseal.Tx) [][]byte {
	stx, ok := tx.(SignedTx)
	if !ok {
		return nil
	}
	var keys [][]byte
	for _, sig := range stx.GetSignatures() {
		if sig != nil && sig.Pubkey != nil {
			keys = append(keys, AccountKey(sig.Pubkey.Address()))
		}
	}
	return keys
}
