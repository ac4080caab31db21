package workflow

import (
	"context"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/app"
	"github.com/iov-one/docseal/x/capability"
	"github.com/iov-one/docseal/x/document"
	"github.com/iov-one/docseal/x/sigs"
)

// Ledger is what the orchestrator needs from the ledger. It is
// implemented in process by InProcess and remotely by client.Client.
type Ledger interface {
	ChainID() string
	Deliver(ctx context.Context, tx []byte) (*docseal.DeliverResult, error)
	// Receipt returns the result of an applied transaction by its
	// app.TxHash, or ErrNotFound.
	Receipt(ctx context.Context, hash []byte) (*docseal.DeliverResult, error)
	Document(ctx context.Context, id []byte) (*document.Document, error)
	Nonce(ctx context.Context, addr docseal.Address) (int64, error)
	FindCapability(ctx context.Context, holder docseal.Address, documentID []byte, pageSize int) (*capability.SignerCap, error)
}

type inProcess struct {
	*app.Ledger
}

// InProcess adapts a ledger running in this process.
func InProcess(l *app.Ledger) Ledger {
	return inProcess{Ledger: l}
}

func (l inProcess) Receipt(ctx context.Context, hash []byte) (*docseal.DeliverResult, error) {
	r, err := l.Ledger.Receipt(hash)
	if err != nil {
		return nil, err
	}
	return r.Result(), nil
}

func (l inProcess) Document(ctx context.Context, id []byte) (*document.Document, error) {
	var doc *document.Document
	err := l.View(func(db docseal.ReadOnlyKVStore) error {
		var err error
		doc, err = document.Get(db, id)
		return err
	})
	return doc, err
}

func (l inProcess) Nonce(ctx context.Context, addr docseal.Address) (int64, error) {
	var nonce int64
	err := l.View(func(db docseal.ReadOnlyKVStore) error {
		var err error
		nonce, err = sigs.NextNonce(db, addr)
		return err
	})
	return nonce, err
}

func (l inProcess) FindCapability(ctx context.Context, holder docseal.Address, documentID []byte, pageSize int) (*capability.SignerCap, error) {
	var c *capability.SignerCap
	err := l.View(func(db docseal.ReadOnlyKVStore) error {
		var err error
		c, err = capability.Find(db, holder, documentID, pageSize)
		return err
	})
	return c, err
}
