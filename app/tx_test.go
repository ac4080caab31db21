package app

import (
	"testing"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/x/document"
)

func TestTxMessage(t *testing.T) {
	docID := docsealtest.SequenceID(1)
	cases := map[string]struct {
		tx       *Tx
		wantPath string
		wantErr  *errors.Error
	}{
		"create": {
			tx:       &Tx{CreateDocument: &document.CreateMsg{Title: "a"}},
			wantPath: "document/create",
		},
		"authorize": {
			tx:       &Tx{Authorize: &document.AuthorizeMsg{DocumentID: docID, Identity: docID}},
			wantPath: "document/authorize",
		},
		"no message": {
			tx:      &Tx{},
			wantErr: errors.ErrMsg,
		},
		"two messages": {
			tx: &Tx{
				SignDocument:  &document.SignMsg{DocumentID: docID},
				UpdateBlobRef: &document.UpdateBlobRefMsg{DocumentID: docID},
			},
			wantErr: errors.ErrMsg,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			msg, err := tc.tx.GetMsg()
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.wantPath, msg.Path())
		})
	}
}

func TestNewTx(t *testing.T) {
	msgs := []docseal.Msg{
		&document.CreateMsg{},
		&document.SignMsg{},
		&document.UpdateBlobRefMsg{},
		&document.AppendSignedVersionMsg{},
		&document.IssueSignerMsg{},
		&document.RevokeSignerMsg{},
		&document.AuthorizeMsg{},
		&document.UpdateConfigurationMsg{},
	}
	for _, msg := range msgs {
		tx, err := NewTx(msg)
		assert.Nil(t, err)
		got, err := tx.GetMsg()
		assert.Nil(t, err)
		assert.Equal(t, msg, got)
	}

	_, err := NewTx(&docsealtest.Msg{})
	assert.IsErr(t, errors.ErrType, err)
}

func TestTxSignBytesExcludeSignatures(t *testing.T) {
	p := docsealtest.NewParticipant()
	tx, err := NewTx(&document.CreateMsg{Creator: p.Address, Title: "signed"})
	assert.Nil(t, err)

	before, err := tx.GetSignBytes()
	assert.Nil(t, err)
	assert.Nil(t, tx.Sign(p.Key, "test-chain-1", 0))
	after, err := tx.GetSignBytes()
	assert.Nil(t, err)
	assert.Equal(t, before, after)

	raw, err := tx.Marshal()
	assert.Nil(t, err)
	decoded, err := DecodeTx(raw)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(decoded.(*Tx).GetSignatures()))
	msg, err := decoded.GetMsg()
	assert.Nil(t, err)
	assert.Equal(t, "signed", msg.(*document.CreateMsg).Title)
}
