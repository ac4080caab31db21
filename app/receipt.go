package app

import (
	"crypto/sha256"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/orm"
)

// Receipt is the result of a delivered transaction, stored in the same
// write as its changes. A client that lost the response of Deliver can
// still learn whether the transaction was applied, and what it returned.
type Receipt struct {
	Height int64  `json:"height"`
	Data   []byte `json:"data,omitempty"`
	Log    string `json:"log,omitempty"`
}

var _ orm.Model = (*Receipt)(nil)

func (r *Receipt) Validate() error {
	if r.Height <= 0 {
		return errors.Field("Height", errors.ErrInput, "must be positive")
	}
	return nil
}

func (r *Receipt) Copy() orm.Model {
	cp := *r
	cp.Data = append([]byte(nil), r.Data...)
	return &cp
}

func (r *Receipt) Marshal() ([]byte, error)   { return docseal.MarshalBinary(r) }
func (r *Receipt) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, r) }

// Result returns the receipt as it was returned by Deliver.
func (r *Receipt) Result() *docseal.DeliverResult {
	return &docseal.DeliverResult{Data: r.Data, Log: r.Log}
}

var receipts = orm.NewBucket("receipt", &Receipt{})

// TxHash is the key a transaction receipt is stored under.
func TxHash(raw []byte) []byte {
	h := sha256.Sum256(raw)
	return h[:]
}

func saveReceipt(db docseal.KVStore, hash []byte, height int64, res *docseal.DeliverResult) error {
	r := &Receipt{Height: height, Data: res.Data, Log: res.Log}
	return errors.Wrap(receipts.Put(db, hash, r), "save receipt")
}

// LoadReceipt returns the receipt of a delivered transaction, or
// ErrNotFound when no transaction with that hash was applied.
func LoadReceipt(db docseal.ReadOnlyKVStore, hash []byte) (*Receipt, error) {
	if len(hash) != sha256.Size {
		return nil, errors.Wrapf(errors.ErrInput, "tx hash of %d bytes", len(hash))
	}
	var r Receipt
	if err := receipts.One(db, hash, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
