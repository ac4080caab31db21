package workflow

import (
	"sync"

	"github.com/google/uuid"
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/orm"
)

const (
	progressBucket = "saga"
	pendingIndex   = "pending"
)

// Progress is the checkpoint of a saga. Stage is the last completed
// stage. Outputs of completed stages are kept so that a resumed saga
// continues with them.
type Progress struct {
	ID    []byte          `json:"id"`
	Saga  Saga            `json:"saga"`
	Stage Stage           `json:"stage"`
	Actor docseal.Address `json:"actor"`

	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Signers     []docseal.Address `json:"signers,omitempty"`

	DocumentID []byte `json:"document_id,omitempty"`
	// Ciphertext is kept between encrypting and uploading only.
	Ciphertext []byte `json:"ciphertext,omitempty"`
	BlobRef    string `json:"blob_ref,omitempty"`
	CapID      []byte `json:"cap_id,omitempty"`
	Status     string `json:"status,omitempty"`
	// PendingTx is the signed transaction of the running stage, stored
	// before it is sent. A retry sends these bytes again instead of
	// signing a new transaction.
	PendingTx []byte `json:"pending_tx,omitempty"`

	// LastError of the most recent failed attempt.
	LastError string           `json:"last_error,omitempty"`
	UpdatedAt docseal.UnixTime `json:"updated_at"`
}

var _ orm.Model = (*Progress)(nil)

func newProgress(saga Saga, actor docseal.Address) *Progress {
	id := uuid.New()
	return &Progress{ID: id[:], Saga: saga, Actor: actor}
}

// SagaID returns the id in the canonical uuid form.
func (p *Progress) SagaID() string {
	id, err := uuid.FromBytes(p.ID)
	if err != nil {
		return "(invalid)"
	}
	return id.String()
}

// Completed returns true if the stage was already completed.
func (p *Progress) Completed(stage Stage) bool {
	if p.Stage == "" {
		return false
	}
	return p.Saga.position(p.Stage) >= p.Saga.position(stage)
}

// Done returns true if the saga finished.
func (p *Progress) Done() bool {
	return p.Stage == StageDone
}

func (p *Progress) Validate() error {
	var errs error
	if len(p.ID) != 16 {
		errs = errors.AppendField(errs, "ID", errors.ErrInput)
	}
	if p.Saga.stages() == nil {
		errs = errors.Append(errs, errors.Field("Saga", errors.ErrInput, "unknown saga %q", p.Saga))
	}
	if p.Stage != "" && p.Saga.position(p.Stage) < 0 {
		errs = errors.Append(errs, errors.Field("Stage", errors.ErrInput, "unknown stage %q", p.Stage))
	}
	errs = errors.AppendField(errs, "Actor", p.Actor.Validate())
	return errs
}

func (p *Progress) Copy() orm.Model {
	cp := *p
	cp.ID = append([]byte(nil), p.ID...)
	cp.Actor = append(docseal.Address(nil), p.Actor...)
	cp.Signers = append([]docseal.Address(nil), p.Signers...)
	cp.DocumentID = append([]byte(nil), p.DocumentID...)
	cp.Ciphertext = append([]byte(nil), p.Ciphertext...)
	cp.CapID = append([]byte(nil), p.CapID...)
	cp.PendingTx = append([]byte(nil), p.PendingTx...)
	return &cp
}

func (p *Progress) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(p)
}

func (p *Progress) Unmarshal(raw []byte) error {
	return docseal.UnmarshalBinary(raw, p)
}

// pendingIndexer indexes unfinished sagas by their actor.
func pendingIndexer(m orm.Model) ([]byte, error) {
	p, ok := m.(*Progress)
	if !ok {
		return nil, errors.WithType(errors.ErrModel, m)
	}
	if p.Done() {
		return nil, nil
	}
	return p.Actor, nil
}

// ProgressStore persists saga checkpoints. Every save is committed.
type ProgressStore struct {
	mu     sync.Mutex
	db     docseal.CommitKVStore
	bucket orm.Bucket
}

// NewProgressStore loads the latest version of the store.
func NewProgressStore(db docseal.CommitKVStore) (*ProgressStore, error) {
	if err := db.LoadLatestVersion(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return &ProgressStore{
		db:     db,
		bucket: orm.NewBucket(progressBucket, &Progress{}).WithIndex(pendingIndex, pendingIndexer, false),
	}, nil
}

// Save stores the progress and commits it.
func (s *ProgressStore) Save(p *Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.db.CacheWrap()
	if err := s.bucket.Put(cache, p.ID, p); err != nil {
		cache.Discard()
		return errors.Wrap(err, "save progress")
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "write progress")
	}
	if _, err := s.db.Commit(); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Load returns the progress of a saga. ErrNotFound is returned for
// unknown ids.
func (s *ProgressStore) Load(id []byte) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.db.CacheWrap()
	defer cache.Discard()
	var p Progress
	if err := s.bucket.One(cache, id, &p); err != nil {
		return nil, errors.Wrapf(err, "saga %X", id)
	}
	return &p, nil
}

// Pending returns unfinished sagas of the actor.
func (s *ProgressStore) Pending(actor docseal.Address) ([]*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.db.CacheWrap()
	defer cache.Discard()
	keys, _, err := s.bucket.IndexKeys(cache, pendingIndex, actor, nil, 0)
	if err != nil {
		return nil, err
	}
	res := make([]*Progress, 0, len(keys))
	for _, k := range keys {
		var p Progress
		if err := s.bucket.One(cache, k, &p); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, nil
}
