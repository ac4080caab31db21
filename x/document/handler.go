package document

import (
	"bytes"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/gconf"
	"github.com/iov-one/docseal/notify"
	"github.com/iov-one/docseal/x"
	"github.com/iov-one/docseal/x/capability"
	"github.com/iov-one/docseal/x/registry"
)

// RegisterRoutes registers handlers for all messages of this package.
func RegisterRoutes(r docseal.Registry, auth x.Authenticator) {
	r.Handle(pathCreate, CreateHandler{auth: auth})
	r.Handle(pathSign, SignHandler{auth: auth})
	r.Handle(pathUpdateBlobRef, UpdateBlobRefHandler{auth: auth})
	r.Handle(pathAppendSignedVersion, AppendSignedVersionHandler{auth: auth})
	r.Handle(pathIssueSigner, IssueSignerHandler{auth: auth})
	r.Handle(pathRevokeSigner, RevokeSignerHandler{auth: auth})
	r.Handle(pathAuthorize, AuthorizeHandler{auth: auth})
	r.Handle(pathUpdateConfiguration, gconf.NewUpdateConfigurationHandler(ConfigPkg, &Configuration{}, auth, nil))
}

// CreateHandler registers documents.
type CreateHandler struct {
	auth x.Authenticator
}

var _ docseal.Handler = CreateHandler{}

func (h CreateHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

// Deliver stores the document, issues a capability to every signer and
// updates the registry. The new document id is returned as data.
func (h CreateHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, err
	}

	id, err := registry.NextDocumentID(db)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire id")
	}
	doc := NewDocument(id, msg.Creator, msg.Title, msg.Description, msg.BlobRef, msg.Signers, now)
	if err := Save(db, doc); err != nil {
		return nil, errors.Wrap(err, "cannot store document")
	}
	if err := registry.RecordCreation(db, doc.Creator, id); err != nil {
		return nil, errors.Wrap(err, "registry")
	}
	for _, s := range doc.UniqueSigners() {
		if _, err := capability.Issue(db, id, s, now); err != nil {
			return nil, errors.Wrapf(err, "issue capability to %s", s)
		}
		if err := registry.RecordAssignment(db, s, id); err != nil {
			return nil, errors.Wrap(err, "registry")
		}
	}

	signers := make([][]byte, len(doc.AuthorizedSigners))
	for i, s := range doc.AuthorizedSigners {
		signers[i] = s
	}
	ev := &notify.DocumentCreated{
		DocumentID:        id,
		Creator:           doc.Creator,
		Title:             doc.Title,
		AuthorizedSigners: signers,
		Timestamp:         int64(now),
	}
	if err := notify.Emit(ctx, db, ev); err != nil {
		return nil, errors.Wrap(err, "emit")
	}
	return &docseal.DeliverResult{Data: id}, nil
}

func (h CreateHandler) validate(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*CreateMsg, error) {
	var msg CreateMsg
	if err := docseal.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Creator) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "creator must sign")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if n := len(msg.Title); n > int(conf.MaxTitleLength) {
		return nil, errors.Field("Title", errors.ErrInput, "longer than %d", conf.MaxTitleLength)
	}
	if n := len(msg.Description); n > int(conf.MaxDescriptionLength) {
		return nil, errors.Field("Description", errors.ErrInput, "longer than %d", conf.MaxDescriptionLength)
	}
	if n := len(docseal.UniqueAddresses(msg.Signers)); n > int(conf.MaxSigners) {
		return nil, errors.Field("Signers", errors.ErrInput, "more than %d", conf.MaxSigners)
	}
	return &msg, nil
}

// SignHandler records signatures.
type SignHandler struct {
	auth x.Authenticator
}

var _ docseal.Handler = SignHandler{}

func (h SignHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

func (h SignHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	doc, signer, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, err
	}
	if err := doc.Sign(signer, now); err != nil {
		return nil, err
	}
	if err := Save(db, doc); err != nil {
		return nil, errors.Wrap(err, "cannot store document")
	}
	ev := &notify.DocumentSigned{
		DocumentID:      doc.ID,
		Signer:          signer,
		Timestamp:       int64(now),
		TotalSignatures: int64(len(doc.Signatures)),
	}
	if err := notify.Emit(ctx, db, ev); err != nil {
		return nil, errors.Wrap(err, "emit")
	}
	return &docseal.DeliverResult{Log: doc.Status.String()}, nil
}

func (h SignHandler) validate(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*Document, docseal.Address, error) {
	var msg SignMsg
	if err := docseal.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	doc, signer, err := withCapability(ctx, db, h.auth, msg.DocumentID, msg.CapID)
	if err != nil {
		return nil, nil, err
	}
	if doc.HasSigned(signer) {
		return nil, nil, errors.Wrapf(ErrAlreadySigned, "signer %s", signer)
	}
	return doc, signer, nil
}

// UpdateBlobRefHandler replaces the current content reference.
type UpdateBlobRefHandler struct {
	auth x.Authenticator
}

var _ docseal.Handler = UpdateBlobRefHandler{}

func (h UpdateBlobRefHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

func (h UpdateBlobRefHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	msg, doc, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	doc.SetBlobRef(msg.BlobRef)
	if err := Save(db, doc); err != nil {
		return nil, errors.Wrap(err, "cannot store document")
	}
	return &docseal.DeliverResult{}, nil
}

func (h UpdateBlobRefHandler) validate(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*UpdateBlobRefMsg, *Document, error) {
	var msg UpdateBlobRefMsg
	if err := docseal.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	doc, err := asCreator(ctx, db, h.auth, msg.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, doc, nil
}

// AppendSignedVersionHandler appends signed content versions.
type AppendSignedVersionHandler struct {
	auth x.Authenticator
}

var _ docseal.Handler = AppendSignedVersionHandler{}

func (h AppendSignedVersionHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

func (h AppendSignedVersionHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	msg, doc, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	doc.AppendSignedVersion(msg.BlobRef)
	if err := Save(db, doc); err != nil {
		return nil, errors.Wrap(err, "cannot store document")
	}
	return &docseal.DeliverResult{}, nil
}

func (h AppendSignedVersionHandler) validate(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*AppendSignedVersionMsg, *Document, error) {
	var msg AppendSignedVersionMsg
	if err := docseal.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	doc, _, err := withCapability(ctx, db, h.auth, msg.DocumentID, msg.CapID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, doc, nil
}

// IssueSignerHandler authorizes additional signers.
type IssueSignerHandler struct {
	auth x.Authenticator
}

var _ docseal.Handler = IssueSignerHandler{}

func (h IssueSignerHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

// Deliver is idempotent: issuing an already authorized signer that holds a
// capability changes nothing.
func (h IssueSignerHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	msg, doc, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, err
	}

	if doc.AddSigner(msg.Signer) {
		if err := Save(db, doc); err != nil {
			return nil, errors.Wrap(err, "cannot store document")
		}
	}
	held, err := capability.HeldFor(db, msg.Signer, doc.ID)
	if err != nil {
		return nil, errors.Wrap(err, "capability")
	}
	if !held {
		if _, err := capability.Issue(db, doc.ID, msg.Signer, now); err != nil {
			return nil, errors.Wrap(err, "issue capability")
		}
	}
	if err := registry.RecordAssignment(db, msg.Signer, doc.ID); err != nil {
		return nil, errors.Wrap(err, "registry")
	}
	return &docseal.DeliverResult{Log: doc.Status.String()}, nil
}

func (h IssueSignerHandler) validate(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*IssueSignerMsg, *Document, error) {
	var msg IssueSignerMsg
	if err := docseal.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	doc, err := asCreator(ctx, db, h.auth, msg.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.IsAuthorizedSigner(msg.Signer) {
		conf, err := loadConf(db)
		if err != nil {
			return nil, nil, err
		}
		if len(doc.UniqueSigners()) >= int(conf.MaxSigners) {
			return nil, nil, errors.Field("Signer", errors.ErrInput, "document has %d signers", conf.MaxSigners)
		}
	}
	return &msg, doc, nil
}

// RevokeSignerHandler removes signer authorizations.
type RevokeSignerHandler struct {
	auth x.Authenticator
}

var _ docseal.Handler = RevokeSignerHandler{}

func (h RevokeSignerHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

// Deliver removes the signer. Revoking a signer that is not authorized is a
// no-op.
func (h RevokeSignerHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	msg, doc, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if doc.RemoveSigner(msg.Signer) {
		if err := Save(db, doc); err != nil {
			return nil, errors.Wrap(err, "cannot store document")
		}
	}
	return &docseal.DeliverResult{Log: doc.Status.String()}, nil
}

func (h RevokeSignerHandler) validate(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*RevokeSignerMsg, *Document, error) {
	var msg RevokeSignerMsg
	if err := docseal.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	doc, err := asCreator(ctx, db, h.auth, msg.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, doc, nil
}

// AuthorizeHandler accepts a transaction only if its signer may decrypt
// the document. It never writes.
type AuthorizeHandler struct {
	auth x.Authenticator
}

var _ docseal.Handler = AuthorizeHandler{}

func (h AuthorizeHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

func (h AuthorizeHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	if err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.DeliverResult{}, nil
}

func (h AuthorizeHandler) validate(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) error {
	var msg AuthorizeMsg
	if err := docseal.LoadMsg(tx, &msg); err != nil {
		return errors.Wrap(err, "load msg")
	}
	requester, err := x.MainSignerAddress(ctx, h.auth)
	if err != nil {
		return err
	}
	doc, err := Get(db, msg.DocumentID)
	if err != nil {
		return err
	}
	if !bytes.Equal(msg.Identity, doc.ID) {
		return errors.Wrap(errors.ErrUnauthorized, "identity does not match the document")
	}
	if !Authorize(doc, requester) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s may not decrypt", requester)
	}
	return nil
}

// asCreator loads the document and ensures its creator signed the
// transaction.
func asCreator(ctx docseal.Context, db docseal.KVStore, auth x.Authenticator, id []byte) (*Document, error) {
	doc, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if !auth.HasAddress(ctx, doc.Creator) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "creator must sign")
	}
	return doc, nil
}

// withCapability loads the document and the capability of the main
// transaction signer. ErrCapabilityNotFound is returned if the signer does
// not hold the capability, ErrUnauthorized if it is bound to another
// document.
func withCapability(ctx docseal.Context, db docseal.KVStore, auth x.Authenticator, docID, capID []byte) (*Document, docseal.Address, error) {
	signer, err := x.MainSignerAddress(ctx, auth)
	if err != nil {
		return nil, nil, err
	}
	doc, err := Get(db, docID)
	if err != nil {
		return nil, nil, err
	}
	c, err := capability.Load(db, signer, capID)
	if err != nil {
		return nil, nil, err
	}
	if !capability.Validate(c, doc.ID) {
		return nil, nil, errors.Wrapf(errors.ErrUnauthorized, "capability %s is bound to document %X", c, c.DocumentID)
	}
	return doc, signer, nil
}

func blockNow(ctx docseal.Context) (docseal.UnixTime, error) {
	t, ok := docseal.BlockTime(ctx)
	if !ok {
		return 0, errors.Wrap(errors.ErrHuman, "block time not present in context")
	}
	return docseal.AsUnixTime(t), nil
}
