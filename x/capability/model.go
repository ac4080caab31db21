package capability

import (
	"github.com/google/uuid"
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/orm"
)

// BucketName is where capabilities are stored.
const BucketName = "cap"

// IDLength is the size of a capability id in bytes.
const IDLength = 16

// SignerCap allows its holder to sign a single document.
type SignerCap struct {
	ID         []byte
	DocumentID []byte
	Holder     docseal.Address
	IssuedAt   docseal.UnixTime
}

var _ orm.Model = (*SignerCap)(nil)

// Validate ensures the capability is well formed.
func (c *SignerCap) Validate() error {
	var errs error
	if len(c.ID) != IDLength {
		errs = errors.AppendField(errs, "ID", errors.Wrapf(errors.ErrInput, "length %d", len(c.ID)))
	}
	errs = errors.AppendField(errs, "DocumentID", orm.ValidateSequence(c.DocumentID))
	errs = errors.AppendField(errs, "Holder", c.Holder.Validate())
	if err := c.IssuedAt.Validate(); err != nil {
		errs = errors.AppendField(errs, "IssuedAt", err)
	}
	return errs
}

func (c *SignerCap) Copy() orm.Model {
	return &SignerCap{
		ID:         append([]byte(nil), c.ID...),
		DocumentID: append([]byte(nil), c.DocumentID...),
		Holder:     append(docseal.Address(nil), c.Holder...),
		IssuedAt:   c.IssuedAt,
	}
}

func (c *SignerCap) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(c)
}

func (c *SignerCap) Unmarshal(raw []byte) error {
	return docseal.UnmarshalBinary(raw, c)
}

// String returns the id in the canonical uuid form.
func (c *SignerCap) String() string {
	id, err := uuid.FromBytes(c.ID)
	if err != nil {
		return "(invalid)"
	}
	return id.String()
}

// Bucket stores capabilities under holder address followed by the
// capability id. All capabilities of a holder share a key prefix.
type Bucket struct {
	orm.Bucket
}

// NewBucket returns a bucket for capabilities.
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, &SignerCap{}),
	}
}

// Key returns the primary key of a capability.
func Key(holder docseal.Address, capID []byte) []byte {
	key := make([]byte, 0, len(holder)+len(capID))
	key = append(key, holder...)
	return append(key, capID...)
}
