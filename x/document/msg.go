package document

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/gconf"
	"github.com/iov-one/docseal/orm"
	"github.com/iov-one/docseal/x/capability"
	"github.com/iov-one/docseal/x/registry"
)

const (
	pathCreate              = "document/create"
	pathSign                = "document/sign"
	pathUpdateBlobRef       = "document/update_blob_ref"
	pathAppendSignedVersion = "document/append_signed_version"
	pathIssueSigner         = "document/issue_signer"
	pathRevokeSigner        = "document/revoke_signer"
	pathAuthorize           = "document/authorize"
	pathUpdateConfiguration = "document/update_configuration"
)

var (
	_ docseal.Msg = (*CreateMsg)(nil)
	_ docseal.Msg = (*SignMsg)(nil)
	_ docseal.Msg = (*UpdateBlobRefMsg)(nil)
	_ docseal.Msg = (*AppendSignedVersionMsg)(nil)
	_ docseal.Msg = (*IssueSignerMsg)(nil)
	_ docseal.Msg = (*RevokeSignerMsg)(nil)
	_ docseal.Msg = (*AuthorizeMsg)(nil)
	_ docseal.Msg = (*UpdateConfigurationMsg)(nil)

	_ docseal.Contender = (*CreateMsg)(nil)
	_ docseal.Contender = (*SignMsg)(nil)
	_ docseal.Contender = (*IssueSignerMsg)(nil)
)

// CreateMsg registers a new document. The creator must sign the
// transaction. BlobRef may be empty when the content is uploaded later.
type CreateMsg struct {
	Creator     docseal.Address   `json:"creator"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	BlobRef     string            `json:"blob_ref"`
	Signers     []docseal.Address `json:"signers"`
}

func (CreateMsg) Path() string { return pathCreate }

func (m *CreateMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Creator", m.Creator.Validate())
	if m.Title == "" {
		errs = errors.AppendField(errs, "Title", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "BlobRef", validateBlobRef(m.BlobRef, true))
	for i, s := range m.Signers {
		if err := s.Validate(); err != nil {
			errs = errors.Append(errs, errors.Field("Signers", err, "signer %d", i))
		}
	}
	return errs
}

func (m *CreateMsg) ContentionKeys() [][]byte {
	keys := registry.ContentionKeys(m.Creator, docseal.UniqueAddresses(m.Signers)...)
	return append(keys, registry.DocumentIDKey())
}

func (m *CreateMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *CreateMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

// SignMsg signs a document with a capability of the transaction signer.
type SignMsg struct {
	DocumentID []byte `json:"document_id"`
	CapID      []byte `json:"cap_id"`
}

func (SignMsg) Path() string { return pathSign }

func (m *SignMsg) Validate() error {
	return errors.Append(
		errors.Field("DocumentID", orm.ValidateSequence(m.DocumentID), ""),
		errors.Field("CapID", validateCapID(m.CapID), ""),
	)
}

func (m *SignMsg) ContentionKeys() [][]byte {
	return [][]byte{DocumentKey(m.DocumentID)}
}

func (m *SignMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *SignMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

// UpdateBlobRefMsg replaces the current content reference. Only the creator
// may send it.
type UpdateBlobRefMsg struct {
	DocumentID []byte `json:"document_id"`
	BlobRef    string `json:"blob_ref"`
}

func (UpdateBlobRefMsg) Path() string { return pathUpdateBlobRef }

func (m *UpdateBlobRefMsg) Validate() error {
	return errors.Append(
		errors.Field("DocumentID", orm.ValidateSequence(m.DocumentID), ""),
		errors.Field("BlobRef", validateBlobRef(m.BlobRef, false), ""),
	)
}

func (m *UpdateBlobRefMsg) ContentionKeys() [][]byte {
	return [][]byte{DocumentKey(m.DocumentID)}
}

func (m *UpdateBlobRefMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *UpdateBlobRefMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

// AppendSignedVersionMsg adds a signed content version to the history. The
// transaction signer must hold a capability for the document.
type AppendSignedVersionMsg struct {
	DocumentID []byte `json:"document_id"`
	CapID      []byte `json:"cap_id"`
	BlobRef    string `json:"blob_ref"`
}

func (AppendSignedVersionMsg) Path() string { return pathAppendSignedVersion }

func (m *AppendSignedVersionMsg) Validate() error {
	return errors.Append(
		errors.Field("DocumentID", orm.ValidateSequence(m.DocumentID), ""),
		errors.Field("CapID", validateCapID(m.CapID), ""),
		errors.Field("BlobRef", validateBlobRef(m.BlobRef, false), ""),
	)
}

func (m *AppendSignedVersionMsg) ContentionKeys() [][]byte {
	return [][]byte{DocumentKey(m.DocumentID)}
}

func (m *AppendSignedVersionMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *AppendSignedVersionMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

// IssueSignerMsg authorizes an additional signer. Only the creator may send
// it.
type IssueSignerMsg struct {
	DocumentID []byte          `json:"document_id"`
	Signer     docseal.Address `json:"signer"`
}

func (IssueSignerMsg) Path() string { return pathIssueSigner }

func (m *IssueSignerMsg) Validate() error {
	return errors.Append(
		errors.Field("DocumentID", orm.ValidateSequence(m.DocumentID), ""),
		errors.Field("Signer", m.Signer.Validate(), ""),
	)
}

func (m *IssueSignerMsg) ContentionKeys() [][]byte {
	return [][]byte{DocumentKey(m.DocumentID), registry.AssignedKey(m.Signer)}
}

func (m *IssueSignerMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *IssueSignerMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

// RevokeSignerMsg removes a signer authorization. Only the creator may send
// it.
type RevokeSignerMsg struct {
	DocumentID []byte          `json:"document_id"`
	Signer     docseal.Address `json:"signer"`
}

func (RevokeSignerMsg) Path() string { return pathRevokeSigner }

func (m *RevokeSignerMsg) Validate() error {
	return errors.Append(
		errors.Field("DocumentID", orm.ValidateSequence(m.DocumentID), ""),
		errors.Field("Signer", m.Signer.Validate(), ""),
	)
}

func (m *RevokeSignerMsg) ContentionKeys() [][]byte {
	return [][]byte{DocumentKey(m.DocumentID)}
}

func (m *RevokeSignerMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *RevokeSignerMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

// AuthorizeMsg proves that the transaction signer may decrypt content
// encrypted under given identity. It never changes the state, key servers
// check it to decide whether to release their key shares.
type AuthorizeMsg struct {
	DocumentID []byte `json:"document_id"`
	Identity   []byte `json:"identity"`
}

func (AuthorizeMsg) Path() string { return pathAuthorize }

func (m *AuthorizeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "DocumentID", orm.ValidateSequence(m.DocumentID))
	if len(m.Identity) == 0 {
		errs = errors.AppendField(errs, "Identity", errors.ErrEmpty)
	}
	return errs
}

func (m *AuthorizeMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *AuthorizeMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

// UpdateConfigurationMsg patches the configuration. Zero value fields of
// the patch are ignored.
type UpdateConfigurationMsg struct {
	Patch *Configuration `json:"patch"`
}

func (UpdateConfigurationMsg) Path() string { return pathUpdateConfiguration }

func (m *UpdateConfigurationMsg) Validate() error {
	if m.Patch == nil {
		return errors.Field("Patch", errors.ErrEmpty, "")
	}
	// Only non zero values are applied, so only those are validated.
	var errs error
	if len(m.Patch.Owner) != 0 {
		errs = errors.AppendField(errs, "Patch.Owner", m.Patch.Owner.Validate())
	}
	if m.Patch.MaxTitleLength < 0 {
		errs = errors.AppendField(errs, "Patch.MaxTitleLength", errors.ErrInput)
	}
	if m.Patch.MaxDescriptionLength < 0 {
		errs = errors.AppendField(errs, "Patch.MaxDescriptionLength", errors.ErrInput)
	}
	if m.Patch.MaxSigners < 0 {
		errs = errors.AppendField(errs, "Patch.MaxSigners", errors.ErrInput)
	}
	return errs
}

func (m *UpdateConfigurationMsg) ContentionKeys() [][]byte {
	return [][]byte{gconf.Key(ConfigPkg)}
}

func (m *UpdateConfigurationMsg) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }

func validateBlobRef(ref string, allowEmpty bool) error {
	if ref == "" && !allowEmpty {
		return errors.ErrEmpty
	}
	if len(ref) > maxBlobRefLength {
		return errors.Wrapf(errors.ErrInput, "longer than %d", maxBlobRefLength)
	}
	return nil
}

func validateCapID(id []byte) error {
	if len(id) == 0 {
		return errors.ErrEmpty
	}
	if len(id) != capability.IDLength {
		return errors.Wrapf(errors.ErrInput, "length %d", len(id))
	}
	return nil
}
