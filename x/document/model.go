package document

import (
	"encoding/json"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/orm"
)

// BucketName is where documents are stored.
const BucketName = "doc"

// maxBlobRefLength limits the size of a content store reference.
const maxBlobRefLength = 256

// Status of a document, derived from its signatures.
type Status int32

const (
	StatusPending Status = iota
	StatusPartial
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPartial:
		return "partial"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status by its name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the status name.
func (s *Status) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInput, "status must be a string")
	}
	for _, st := range []Status{StatusPending, StatusPartial, StatusComplete} {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInput, "unknown status %q", name)
}

// ComputeStatus returns the status of a document with given number of
// signatures, unique authorized signers and those of them who signed.
//
// A document is Complete once every current signer signed, and there is
// at least one. Signatures of revoked signers are kept but do not count
// towards completion, so a document is never Complete while a current
// signer did not sign, and a new signature never lowers the status.
func ComputeStatus(signatures, signedSigners, uniqueSigners int) Status {
	switch {
	case signatures == 0:
		return StatusPending
	case uniqueSigners > 0 && signedSigners == uniqueSigners:
		return StatusComplete
	default:
		return StatusPartial
	}
}

// Signature records that a signer signed a document.
type Signature struct {
	Signer   docseal.Address  `json:"signer"`
	SignedAt docseal.UnixTime `json:"signed_at"`
}

// Document is the ledger record of a single document.
type Document struct {
	ID                []byte            `json:"id"`
	Creator           docseal.Address   `json:"creator"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	BlobRef           string            `json:"blob_ref"`
	SignedBlobHistory []string          `json:"signed_blob_history"`
	AuthorizedSigners []docseal.Address `json:"authorized_signers"`
	Signatures        []*Signature      `json:"signatures"`
	Status            Status            `json:"status"`
	CreatedAt         docseal.UnixTime  `json:"created_at"`

	// Version is incremented with every change of the document.
	Version int64 `json:"version"`
}

var _ orm.Model = (*Document)(nil)

// NewDocument returns a pending document. Duplicated signers are ignored.
func NewDocument(
	id []byte,
	creator docseal.Address,
	title, description, blobRef string,
	signers []docseal.Address,
	now docseal.UnixTime,
) *Document {
	return &Document{
		ID:                id,
		Creator:           creator,
		Title:             title,
		Description:       description,
		BlobRef:           blobRef,
		AuthorizedSigners: docseal.UniqueAddresses(signers),
		Status:            StatusPending,
		CreatedAt:         now,
		Version:           1,
	}
}

func (d *Document) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "ID", orm.ValidateSequence(d.ID))
	errs = errors.AppendField(errs, "Creator", d.Creator.Validate())
	if d.Title == "" {
		errs = errors.AppendField(errs, "Title", errors.ErrEmpty)
	}
	if len(d.BlobRef) > maxBlobRefLength {
		errs = errors.AppendField(errs, "BlobRef", errors.ErrInput)
	}
	for _, ref := range d.SignedBlobHistory {
		if ref == "" || len(ref) > maxBlobRefLength {
			errs = errors.AppendField(errs, "SignedBlobHistory", errors.ErrInput)
			break
		}
	}
	for _, s := range d.AuthorizedSigners {
		if err := s.Validate(); err != nil {
			errs = errors.AppendField(errs, "AuthorizedSigners", err)
			break
		}
	}
	seen := make(map[string]struct{}, len(d.Signatures))
	for _, sig := range d.Signatures {
		if sig == nil {
			errs = errors.AppendField(errs, "Signatures", errors.ErrEmpty)
			break
		}
		if err := sig.Signer.Validate(); err != nil {
			errs = errors.AppendField(errs, "Signatures", err)
			break
		}
		if _, ok := seen[string(sig.Signer)]; ok {
			errs = errors.AppendField(errs, "Signatures", errors.Wrapf(errors.ErrDuplicate, "signer %s", sig.Signer))
			break
		}
		seen[string(sig.Signer)] = struct{}{}
	}
	if want := d.computeStatus(); d.Status != want {
		errs = errors.AppendField(errs, "Status",
			errors.Wrapf(errors.ErrState, "status %s, want %s", d.Status, want))
	}
	if d.Version < 1 {
		errs = errors.AppendField(errs, "Version", errors.ErrInput)
	}
	if err := d.CreatedAt.Validate(); err != nil {
		errs = errors.AppendField(errs, "CreatedAt", err)
	}
	return errs
}

func (d *Document) Copy() orm.Model {
	cp := *d
	cp.SignedBlobHistory = append([]string(nil), d.SignedBlobHistory...)
	cp.AuthorizedSigners = append([]docseal.Address(nil), d.AuthorizedSigners...)
	cp.Signatures = make([]*Signature, len(d.Signatures))
	for i, s := range d.Signatures {
		sig := *s
		cp.Signatures[i] = &sig
	}
	return &cp
}

func (d *Document) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(d)
}

func (d *Document) Unmarshal(raw []byte) error {
	return docseal.UnmarshalBinary(raw, d)
}

// UniqueSigners returns the authorized signers without duplicates. The
// signer list is deduplicated on every insertion, but status computation
// does not rely on that.
func (d *Document) UniqueSigners() []docseal.Address {
	return docseal.UniqueAddresses(d.AuthorizedSigners)
}

func (d *Document) computeStatus() Status {
	signers := d.UniqueSigners()
	var signed int
	for _, s := range signers {
		if d.HasSigned(s) {
			signed++
		}
	}
	return ComputeStatus(len(d.Signatures), signed, len(signers))
}

// touch must be called after every mutation.
func (d *Document) touch() {
	d.Status = d.computeStatus()
	d.Version++
}

// LatestBlobRef returns the reference of the most recent content: the last
// signed version if any, the current reference otherwise.
func (d *Document) LatestBlobRef() string {
	if n := len(d.SignedBlobHistory); n > 0 {
		return d.SignedBlobHistory[n-1]
	}
	return d.BlobRef
}

// IsAuthorizedSigner returns true if the address is currently allowed to
// sign.
func (d *Document) IsAuthorizedSigner(addr docseal.Address) bool {
	for _, s := range d.AuthorizedSigners {
		if s.Equals(addr) {
			return true
		}
	}
	return false
}

// HasSigned returns true if a signature of given address was recorded.
func (d *Document) HasSigned(addr docseal.Address) bool {
	for _, s := range d.Signatures {
		if s.Signer.Equals(addr) {
			return true
		}
	}
	return false
}

// Sign records a signature. Signatures are never overwritten.
func (d *Document) Sign(signer docseal.Address, now docseal.UnixTime) error {
	if d.HasSigned(signer) {
		return errors.Wrapf(ErrAlreadySigned, "signer %s", signer)
	}
	d.Signatures = append(d.Signatures, &Signature{Signer: signer, SignedAt: now})
	d.touch()
	return nil
}

// AddSigner authorizes a signer. It returns false if the signer was
// already authorized.
func (d *Document) AddSigner(signer docseal.Address) bool {
	if d.IsAuthorizedSigner(signer) {
		return false
	}
	d.AuthorizedSigners = append(d.AuthorizedSigners, signer)
	d.touch()
	return true
}

// RemoveSigner revokes a signer authorization. Signatures already recorded
// are kept, but no longer count towards completion. It returns false if
// the signer was not authorized.
func (d *Document) RemoveSigner(signer docseal.Address) bool {
	signers := d.AuthorizedSigners[:0:0]
	for _, s := range d.AuthorizedSigners {
		if !s.Equals(signer) {
			signers = append(signers, s)
		}
	}
	if len(signers) == len(d.AuthorizedSigners) {
		return false
	}
	d.AuthorizedSigners = signers
	d.touch()
	return true
}

// SetBlobRef replaces the current content reference.
func (d *Document) SetBlobRef(ref string) {
	d.BlobRef = ref
	d.touch()
}

// AppendSignedVersion appends a signed content version to the history.
func (d *Document) AppendSignedVersion(ref string) {
	d.SignedBlobHistory = append(d.SignedBlobHistory, ref)
	d.touch()
}

// Authorize returns true if the requester may decrypt the document content
// and is trusted by privileged operations: the creator or any currently
// authorized signer.
func Authorize(d *Document, requester docseal.Address) bool {
	if d == nil || len(requester) == 0 {
		return false
	}
	return d.Creator.Equals(requester) || d.IsAuthorizedSigner(requester)
}

// Bucket stores documents under their id.
type Bucket struct {
	orm.Bucket
}

// NewBucket returns a bucket for documents.
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, &Document{}),
	}
}

// DocumentKey returns the database key of a document.
func DocumentKey(id []byte) []byte {
	return NewBucket().DBKey(id)
}

// Get loads a document. ErrNotFound is returned for unknown ids.
func Get(db docseal.ReadOnlyKVStore, id []byte) (*Document, error) {
	var d Document
	if err := NewBucket().One(db, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save stores a document.
func Save(db docseal.KVStore, d *Document) error {
	return NewBucket().Put(db, d.ID, d)
}

// IsAuthorized returns true if the address passes Authorize for given
// document.
func IsAuthorized(db docseal.ReadOnlyKVStore, id []byte, addr docseal.Address) (bool, error) {
	d, err := Get(db, id)
	if err != nil {
		return false, err
	}
	return Authorize(d, addr), nil
}

// HasSigned returns true if the address signed given document.
func HasSigned(db docseal.ReadOnlyKVStore, id []byte, addr docseal.Address) (bool, error) {
	d, err := Get(db, id)
	if err != nil {
		return false, err
	}
	return d.HasSigned(addr), nil
}
