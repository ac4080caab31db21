package workflow

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/app"
	"github.com/iov-one/docseal/blob"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/seal"
	"github.com/iov-one/docseal/x/document"
	"github.com/iov-one/docseal/x/sigs"
	"github.com/tendermint/tendermint/libs/log"
)

// maxNonceRetries bounds how many times a transaction is signed again
// after a concurrent transaction of the same signer consumed the nonce.
const maxNonceRetries = 3

// Orchestrator runs sagas and the decryption read path.
type Orchestrator struct {
	ledger   Ledger
	blobs    blob.Store
	sealer   seal.Service
	progress *ProgressStore
	conf     Config
	logger   log.Logger
	metrics  *Metrics
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics sets the collectors stage results are recorded with.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(
	ledger Ledger,
	blobs blob.Store,
	sealer seal.Service,
	progress *ProgressStore,
	conf Config,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		ledger:   ledger,
		blobs:    blobs,
		sealer:   sealer,
		progress: progress,
		conf:     conf.withDefaults(),
		logger:   log.NewNopLogger(),
		metrics:  NewMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("module", "workflow")
	return o
}

// CreateRequest describes a new document.
type CreateRequest struct {
	Title       string
	Description string
	Signers     []docseal.Address
	Content     []byte
}

// CreateDocument registers a document, encrypts and uploads its content
// and records the content reference. The document exists on the ledger
// from the first stage on, even if a later stage fails.
func (o *Orchestrator) CreateDocument(ctx context.Context, signer crypto.Signer, req CreateRequest) (*Progress, error) {
	if req.Title == "" {
		return nil, errors.Field("Title", errors.ErrEmpty, "")
	}
	if len(req.Content) == 0 {
		return nil, errors.Field("Content", errors.ErrEmpty, "")
	}
	p := newProgress(SagaCreate, signer.PublicKey().Address())
	p.Title = req.Title
	p.Description = req.Description
	p.Signers = req.Signers
	if err := o.start(p); err != nil {
		return nil, err
	}
	return o.run(ctx, p, signer, req.Content)
}

// SignDocument uploads a signed version of the content and signs the
// document with a capability of the signer. ErrAlreadySigned is returned
// before any work is done if the signer already signed.
func (o *Orchestrator) SignDocument(ctx context.Context, signer crypto.Signer, documentID []byte, content []byte) (*Progress, error) {
	if len(content) == 0 {
		return nil, errors.Field("Content", errors.ErrEmpty, "")
	}
	addr := signer.PublicKey().Address()
	var doc *document.Document
	err := o.retry(ctx, nil, func() error {
		var err error
		doc, err = o.ledger.Document(ctx, documentID)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load document")
	}
	if doc.HasSigned(addr) {
		return nil, errors.Wrapf(document.ErrAlreadySigned, "signer %s", addr)
	}

	p := newProgress(SagaSign, addr)
	p.DocumentID = documentID
	if err := o.start(p); err != nil {
		return nil, err
	}
	return o.run(ctx, p, signer, content)
}

// Resume continues a saga from its last completed stage. The content is
// required only if the saga did not finish encrypting.
func (o *Orchestrator) Resume(ctx context.Context, sagaID []byte, signer crypto.Signer, content []byte) (*Progress, error) {
	p, err := o.progress.Load(sagaID)
	if err != nil {
		return nil, err
	}
	if !p.Actor.Equals(signer.PublicKey().Address()) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "saga started by another actor")
	}
	if p.Done() {
		return p, nil
	}
	o.logger.Info("resuming saga", "saga", string(p.Saga), "id", p.SagaID(), "after", string(p.Stage))
	return o.run(ctx, p, signer, content)
}

// Pending returns unfinished sagas of the actor.
func (o *Orchestrator) Pending(actor docseal.Address) ([]*Progress, error) {
	return o.progress.Pending(actor)
}

// Decrypt returns the latest content of a document. The key servers
// release their shares only to a session of the signer, with a proof
// that the signer is the creator or an authorized signer.
func (o *Orchestrator) Decrypt(ctx context.Context, signer crypto.Signer, documentID []byte) ([]byte, error) {
	addr := signer.PublicKey().Address()
	logger := o.logger.With("document", fmt.Sprintf("%X", documentID), "requester", addr.String())

	var doc *document.Document
	err := o.retry(ctx, nil, func() error {
		var err error
		doc, err = o.ledger.Document(ctx, documentID)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load document")
	}
	ref := doc.LatestBlobRef()
	if ref == "" {
		return nil, errors.Wrap(errors.ErrNotFound, "document has no content")
	}

	var raw []byte
	err = o.retry(ctx, nil, func() error {
		var err error
		raw, err = o.blobs.Get(ctx, ref)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "blob %s", ref)
	}
	ct, err := seal.Decode(raw)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(ct.Identity, documentID) {
		return nil, errors.Wrap(errors.ErrInput, "content encrypted for another document")
	}

	session, err := seal.NewSessionKey(signer, o.now(), o.conf.SessionTTL)
	if err != nil {
		return nil, err
	}
	var plaintext []byte
	err = o.retry(ctx, nil, func() error {
		nonce, err := o.ledger.Nonce(ctx, addr)
		if err != nil {
			return err
		}
		proof, err := app.NewProof(signer, o.ledger.ChainID(), nonce, documentID)
		if err != nil {
			return err
		}
		plaintext, err = o.sealer.Decrypt(ctx, ct, session, proof, o.conf.Threshold)
		return err
	})
	if err != nil {
		logger.Info("decryption refused", "err", err)
		return nil, err
	}
	logger.Debug("document decrypted", "blob", ref)
	return plaintext, nil
}

// start stores the initial checkpoint so that a saga failing in its
// first stage can be resumed.
func (o *Orchestrator) start(p *Progress) error {
	p.UpdatedAt = docseal.AsUnixTime(o.now())
	if err := o.progress.Save(p); err != nil {
		return errors.Wrap(err, "start saga")
	}
	o.logger.Info("saga started", "saga", string(p.Saga), "id", p.SagaID())
	return nil
}

func (o *Orchestrator) run(ctx context.Context, p *Progress, signer crypto.Signer, content []byte) (*Progress, error) {
	for _, stage := range p.Saga.stages() {
		if p.Completed(stage) {
			continue
		}
		if stage == StageDone {
			p.Stage = StageDone
			p.UpdatedAt = docseal.AsUnixTime(o.now())
			if err := o.progress.Save(p); err != nil {
				return p, &StageError{Saga: p.Saga, Stage: stage, Err: err}
			}
			o.logger.Info("saga done", "saga", string(p.Saga), "id", p.SagaID(), "document", fmt.Sprintf("%X", p.DocumentID))
			break
		}
		fn := o.stage(p, stage, signer, content)
		if err := o.runStage(ctx, p, stage, fn); err != nil {
			return p, err
		}
	}
	return p, nil
}

// stage returns the work of a single stage. Results are set on the
// progress only when the stage succeeded.
func (o *Orchestrator) stage(p *Progress, stage Stage, signer crypto.Signer, content []byte) func(context.Context) error {
	addr := signer.PublicKey().Address()
	switch stage {
	case StageCreating:
		return func(ctx context.Context) error {
			res, err := o.submit(ctx, p, signer, &document.CreateMsg{
				Creator:     addr,
				Title:       p.Title,
				Description: p.Description,
				Signers:     p.Signers,
			})
			if err != nil {
				return err
			}
			p.DocumentID = res.Data
			return nil
		}
	case StageEncrypting:
		return func(ctx context.Context) error {
			if len(content) == 0 {
				return errors.Wrap(errors.ErrEmpty, "content is required to encrypt")
			}
			ct, err := o.sealer.Encrypt(ctx, p.DocumentID, o.conf.Threshold, content)
			if err != nil {
				return err
			}
			raw, err := ct.Marshal()
			if err != nil {
				return errors.Wrap(err, "marshal ciphertext")
			}
			p.Ciphertext = raw
			return nil
		}
	case StageUploading:
		return func(ctx context.Context) error {
			ref, err := o.blobs.Put(ctx, p.Ciphertext)
			if err != nil {
				return err
			}
			p.BlobRef = ref
			p.Ciphertext = nil
			return nil
		}
	case StageRecording:
		return func(ctx context.Context) error {
			_, err := o.submit(ctx, p, signer, &document.UpdateBlobRefMsg{
				DocumentID: p.DocumentID,
				BlobRef:    p.BlobRef,
			})
			return err
		}
	case StageResolving:
		return func(ctx context.Context) error {
			c, err := o.ledger.FindCapability(ctx, addr, p.DocumentID, o.conf.CapabilityPageSize)
			if err != nil {
				return err
			}
			p.CapID = c.ID
			return nil
		}
	case StageAppending:
		return func(ctx context.Context) error {
			// A ref already in the history was appended by an earlier
			// attempt whose response was lost.
			doc, err := o.ledger.Document(ctx, p.DocumentID)
			if err != nil {
				return err
			}
			for _, ref := range doc.SignedBlobHistory {
				if ref == p.BlobRef {
					return nil
				}
			}
			_, err = o.submit(ctx, p, signer, &document.AppendSignedVersionMsg{
				DocumentID: p.DocumentID,
				CapID:      p.CapID,
				BlobRef:    p.BlobRef,
			})
			return err
		}
	case StageSigning:
		return func(ctx context.Context) error {
			res, err := o.submit(ctx, p, signer, &document.SignMsg{
				DocumentID: p.DocumentID,
				CapID:      p.CapID,
			})
			if document.ErrAlreadySigned.Is(err) {
				// Signed by a concurrent saga of the same signer, or
				// by a ledger that keeps no receipts.
				doc, derr := o.ledger.Document(ctx, p.DocumentID)
				if derr != nil {
					return derr
				}
				if !doc.HasSigned(addr) {
					return err
				}
				p.Status = doc.Status.String()
				return nil
			}
			if err != nil {
				return err
			}
			p.Status = res.Log
			return nil
		}
	default:
		return func(context.Context) error {
			return errors.Wrapf(errors.ErrState, "unknown stage %q", stage)
		}
	}
}

// runStage executes a stage with retries and stores the checkpoint.
func (o *Orchestrator) runStage(ctx context.Context, p *Progress, stage Stage, fn func(context.Context) error) error {
	logger := o.logger.With("saga", string(p.Saga), "stage", string(stage), "id", p.SagaID())
	if len(p.DocumentID) > 0 {
		logger = logger.With("document", fmt.Sprintf("%X", p.DocumentID))
	}

	start := time.Now()
	notify := func(err error, wait time.Duration) {
		o.metrics.retried(p.Saga, stage)
		logger.Info("stage attempt failed", "err", err, "retry_in", wait)
	}
	err := o.retry(ctx, notify, func() error { return fn(ctx) })
	o.metrics.observe(p.Saga, stage, start, err)
	p.UpdatedAt = docseal.AsUnixTime(o.now())

	if err != nil {
		logger.Error("stage failed", "err", err)
		p.LastError = err.Error()
		if serr := o.progress.Save(p); serr != nil {
			logger.Error("cannot save progress", "err", serr)
		}
		return &StageError{Saga: p.Saga, Stage: stage, Err: err}
	}

	p.Stage = stage
	p.LastError = ""
	p.PendingTx = nil
	if err := o.progress.Save(p); err != nil {
		return &StageError{Saga: p.Saga, Stage: stage, Err: err}
	}
	logger.Info("stage completed", "duration", time.Since(start))
	return nil
}

// retry repeats op while it fails with a transient error and the retry
// timeout did not pass.
func (o *Orchestrator) retry(ctx context.Context, notify backoff.Notify, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.conf.RetryInterval
	b.MaxInterval = 10 * o.conf.RetryInterval
	b.MaxElapsedTime = o.conf.RetryTimeout
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !errors.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), notify)
}

// submit signs the message with the current nonce of the signer and
// delivers it. The signed transaction is checkpointed before it is sent.
// When a response is lost, the next attempt asks for the receipt of that
// transaction and sends the same bytes again, so a stage is never applied
// twice.
func (o *Orchestrator) submit(ctx context.Context, p *Progress, signer crypto.Signer, msg docseal.Msg) (*docseal.DeliverResult, error) {
	if len(p.PendingTx) > 0 {
		res, err := o.resend(ctx, p)
		if err != nil || res != nil {
			return res, err
		}
	}

	addr := signer.PublicKey().Address()
	for attempt := 0; ; attempt++ {
		nonce, err := o.ledger.Nonce(ctx, addr)
		if err != nil {
			return nil, errors.Wrap(err, "nonce")
		}
		tx, err := app.NewTx(msg)
		if err != nil {
			return nil, err
		}
		if err := tx.Sign(signer, o.ledger.ChainID(), nonce); err != nil {
			return nil, err
		}
		raw, err := tx.Marshal()
		if err != nil {
			return nil, errors.Wrap(err, "marshal tx")
		}
		p.PendingTx = raw
		if err := o.progress.Save(p); err != nil {
			p.PendingTx = nil
			return nil, err
		}

		res, err := o.ledger.Deliver(ctx, raw)
		switch {
		case err == nil:
			p.PendingTx = nil
			return res, nil
		case errors.IsTransient(err):
			// The transaction may be committed. Keep it for the next
			// attempt.
			return nil, err
		}
		p.PendingTx = nil
		if sigs.ErrInvalidSequence.Is(err) && attempt < maxNonceRetries {
			continue
		}
		return nil, err
	}
}

// resend settles the transaction of an interrupted attempt. It returns
// nil and no error when that transaction can no longer be applied, so a
// new one must be signed.
func (o *Orchestrator) resend(ctx context.Context, p *Progress) (*docseal.DeliverResult, error) {
	hash := app.TxHash(p.PendingTx)
	receipt := func() (*docseal.DeliverResult, error) {
		res, err := o.ledger.Receipt(ctx, hash)
		switch {
		case err == nil:
			p.PendingTx = nil
			return res, nil
		case errors.ErrNotFound.Is(err):
			return nil, nil
		default:
			return nil, errors.Wrap(err, "receipt")
		}
	}

	if res, err := receipt(); err != nil || res != nil {
		return res, err
	}
	res, err := o.ledger.Deliver(ctx, p.PendingTx)
	switch {
	case err == nil:
		p.PendingTx = nil
		return res, nil
	case errors.IsTransient(err):
		return nil, err
	case sigs.ErrInvalidSequence.Is(err):
		// Applied in the meantime, or its nonce went to another
		// transaction of the signer.
		res, err := receipt()
		if err == nil && res == nil {
			p.PendingTx = nil
		}
		return res, err
	default:
		p.PendingTx = nil
		return nil, err
	}
}
