package sigs

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
)

// StdTx signs the serialized form of its mock message.
type StdTx struct {
	docsealtest.Tx
	Signatures []*StdSignature
}

var _ SignedTx = (*StdTx)(nil)

func NewStdTx(payload []byte) *StdTx {
	return &StdTx{Tx: docsealtest.Tx{
		Msg: &docsealtest.Msg{RoutePath: "test/mock", Serialized: payload},
	}}
}

func (tx *StdTx) GetSignatures() []*StdSignature { return tx.Signatures }

func (tx *StdTx) GetSignBytes() ([]byte, error) {
	return tx.Msg.Marshal()
}

// SigCheckHandler remembers the signers of the last call.
type SigCheckHandler struct {
	Signers []docseal.Condition
}

func (s *SigCheckHandler) Check(ctx docseal.Context, _ docseal.KVStore, _ docseal.Tx) (*docseal.CheckResult, error) {
	s.Signers = Authenticate{}.GetConditions(ctx)
	return &docseal.CheckResult{}, nil
}

func (s *SigCheckHandler) Deliver(ctx docseal.Context, _ docseal.KVStore, _ docseal.Tx) (*docseal.DeliverResult, error) {
	s.Signers = Authenticate{}.GetConditions(ctx)
	return &docseal.DeliverResult{}, nil
}
