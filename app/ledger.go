package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/queue"
	"github.com/iov-one/docseal/x/sigs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

// Ledger executes transactions against a commit store.
//
// Each transaction is executed in its own cache wrap while holding the
// locks of every key its message declares together with the accounts of
// its signers. Transactions with disjoint keys run in parallel. A
// successful transaction is written and committed before Deliver returns.
// Outbox messages are published after the commit by Run.
type Ledger struct {
	store   *CommitStore
	handler docseal.Handler
	decoder docseal.TxDecoder
	logger  log.Logger
	now     func() time.Time
	locks   *keyLocks
	metrics *ledgerMetrics

	// height is the last assigned transaction height. Heights are
	// unique for the lifetime of the store and key outbox messages.
	height int64

	chainMu sync.RWMutex
	chainID string

	relay         *queue.Relay
	flush         chan struct{}
	flushInterval time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger of the ledger and of every transaction.
func WithLogger(logger log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock sets the source of transaction block time.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithPublisher sets where outbox messages are published to.
func WithPublisher(pub queue.Publisher) Option {
	return func(l *Ledger) { l.relay = queue.NewRelay(pub) }
}

// WithFlushInterval sets how often Run retries publishing when there was
// no new transaction.
func WithFlushInterval(d time.Duration) Option {
	return func(l *Ledger) { l.flushInterval = d }
}

// NewLedger loads the latest version of given store. The chain id is read
// from the store, use InitChain if the store was never initialized.
func NewLedger(db docseal.CommitKVStore, handler docseal.Handler, opts ...Option) (*Ledger, error) {
	cs, err := NewCommitStore(db)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		store:         cs,
		handler:       handler,
		decoder:       DecodeTx,
		logger:        log.NewNopLogger(),
		now:           time.Now,
		locks:         newKeyLocks(),
		metrics:       newLedgerMetrics(),
		flush:         make(chan struct{}, 1),
		flushInterval: 5 * time.Second,
	}
	for _, o := range opts {
		o(l)
	}
	if l.relay == nil {
		l.relay = queue.NewRelay(noopPublisher{logger: l.logger})
	}

	var chainID string
	err = l.View(func(db docseal.ReadOnlyKVStore) error {
		chainID, err = loadChainID(db)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.chainID = chainID

	info, err := cs.CommitInfo()
	if err != nil {
		return nil, errors.Wrap(err, "commit info")
	}
	// Heights of failed transactions are not persisted. Outbox keys of an
	// earlier run that are still in use are skipped by queue.Put.
	l.height = info.Version
	return l, nil
}

// ChainID returns the chain id, empty until the ledger is initialized.
func (l *Ledger) ChainID() string {
	l.chainMu.RLock()
	defer l.chainMu.RUnlock()
	return l.chainID
}

// InitChain stores the chain id and initializes all extensions from the
// genesis application state. It fails if the ledger was already
// initialized.
func (l *Ledger) InitChain(gen *Genesis, init docseal.Initializer) error {
	release := l.locks.exclusive()
	defer release()

	l.chainMu.Lock()
	defer l.chainMu.Unlock()
	if l.chainID != "" {
		return errors.Wrapf(errors.ErrState, "already initialized for chain %s", l.chainID)
	}

	cache := l.store.CacheWrap()
	defer cache.Discard()
	if err := saveChainID(cache, gen.ChainID); err != nil {
		return err
	}
	if err := init.FromGenesis(gen.AppState, cache); err != nil {
		return errors.Wrap(err, "initialize from genesis")
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "write genesis")
	}
	if _, err := l.store.Commit(); err != nil {
		return err
	}
	l.chainID = gen.ChainID
	l.logger.Info("chain initialized", "chain_id", gen.ChainID)
	return nil
}

// Check decodes and checks a transaction. Nothing is written.
func (l *Ledger) Check(ctx context.Context, raw []byte) (*docseal.CheckResult, error) {
	tx, err := l.decode(raw)
	if err != nil {
		return nil, err
	}
	return l.CheckTx(ctx, tx)
}

// CheckTx runs the check path of the handler against a cache wrap that is
// always discarded.
func (l *Ledger) CheckTx(ctx context.Context, tx docseal.Tx) (res *docseal.CheckResult, err error) {
	start := time.Now()
	defer func() { l.metrics.observe("check", docseal.GetPath(tx), start, err) }()

	height := atomic.LoadInt64(&l.height) + 1
	txCtx, err := l.txContext(ctx, tx, "check_tx", height)
	if err != nil {
		return nil, err
	}
	cache := l.store.CacheWrap()
	defer cache.Discard()
	return l.handler.Check(txCtx, cache, tx)
}

// Deliver decodes and delivers a transaction.
func (l *Ledger) Deliver(ctx context.Context, raw []byte) (*docseal.DeliverResult, error) {
	tx, err := l.decode(raw)
	if err != nil {
		return nil, err
	}
	return l.DeliverTx(ctx, tx)
}

// DeliverTx executes a transaction and commits its changes together with
// its receipt. A failed transaction leaves no trace in the store.
func (l *Ledger) DeliverTx(ctx context.Context, tx docseal.Tx) (res *docseal.DeliverResult, err error) {
	start := time.Now()
	defer func() { l.metrics.observe("deliver", docseal.GetPath(tx), start, err) }()

	raw, err := tx.Marshal()
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}

	release := l.lock(tx)
	height := atomic.AddInt64(&l.height, 1)
	res, err = l.deliver(ctx, tx, TxHash(raw), height)
	release()
	if err != nil {
		return nil, err
	}

	if _, err := l.store.Commit(); err != nil {
		return nil, err
	}
	l.notify()
	return res, nil
}

func (l *Ledger) deliver(ctx context.Context, tx docseal.Tx, hash []byte, height int64) (*docseal.DeliverResult, error) {
	txCtx, err := l.txContext(ctx, tx, "deliver_tx", height)
	if err != nil {
		return nil, err
	}
	cache := l.store.CacheWrap()
	defer cache.Discard()

	res, err := l.handler.Deliver(txCtx, cache, tx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &docseal.DeliverResult{}
	}
	if err := saveReceipt(cache, hash, height, res); err != nil {
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(err, "write transaction")
	}
	return res, nil
}

// lock acquires the locks of all keys the transaction reads and writes.
func (l *Ledger) lock(tx docseal.Tx) (release func()) {
	msg, err := tx.GetMsg()
	if err != nil || msg == nil {
		// The handler rejects it, but only after loading the signer
		// accounts.
		return l.locks.acquire(sigs.ContentionKeys(tx))
	}
	c, ok := msg.(docseal.Contender)
	if !ok {
		return l.locks.exclusive()
	}
	keys := append(c.ContentionKeys(), sigs.ContentionKeys(tx)...)
	return l.locks.acquire(keys)
}

func (l *Ledger) txContext(ctx context.Context, tx docseal.Tx, call string, height int64) (docseal.Context, error) {
	chainID := l.ChainID()
	if chainID == "" {
		return nil, errors.Wrap(errors.ErrState, "ledger not initialized")
	}
	ctx = docseal.WithChainID(ctx, chainID)
	ctx = docseal.WithHeight(ctx, height)
	ctx = docseal.WithBlockTime(ctx, l.now())
	ctx = docseal.WithLogger(ctx, l.logger.With("call", call, "height", height))
	return ctx, nil
}

func (l *Ledger) decode(raw []byte) (tx docseal.Tx, err error) {
	defer errors.Recover(&err)
	return l.decoder(raw)
}

// View calls fn with a read only snapshot of the working state.
func (l *Ledger) View(fn func(db docseal.ReadOnlyKVStore) error) error {
	cache := l.store.CacheWrap()
	defer cache.Discard()
	return fn(cache)
}

// Receipt returns the result of an applied transaction by its hash.
func (l *Ledger) Receipt(hash []byte) (*Receipt, error) {
	var r *Receipt
	err := l.View(func(db docseal.ReadOnlyKVStore) error {
		var err error
		r, err = LoadReceipt(db, hash)
		return err
	})
	return r, err
}

// CommitInfo returns the latest committed version.
func (l *Ledger) CommitInfo() (docseal.CommitID, error) {
	return l.store.CommitInfo()
}

// RegisterMetrics registers the ledger collectors.
func (l *Ledger) RegisterMetrics(reg prom.Registerer) error {
	return l.metrics.register(reg)
}

// notify wakes up Run without blocking.
func (l *Ledger) notify() {
	select {
	case l.flush <- struct{}{}:
	default:
	}
}

// FlushOutbox publishes all pending outbox messages and commits their
// removal.
func (l *Ledger) FlushOutbox(ctx context.Context) (int, error) {
	n, err := l.relay.Flush(ctx, l.store)
	if n > 0 {
		if _, cerr := l.store.Commit(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

// Run publishes outbox messages after every delivered transaction and
// periodically retries failed publishing, until the context is cancelled.
func (l *Ledger) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.flush:
		case <-ticker.C:
		}
		switch n, err := l.FlushOutbox(ctx); {
		case err != nil:
			l.logger.Error("cannot publish outbox", "published", n, "err", err)
		case n > 0:
			l.logger.Debug("outbox published", "published", n)
		}
	}
}

// noopPublisher only logs. It is used when the ledger has no publisher
// configured, so that the outbox does not grow.
type noopPublisher struct {
	logger log.Logger
}

func (p noopPublisher) Publish(ctx context.Context, msg *queue.Message) error {
	p.logger.Debug("outbox message dropped", "key", msg.Key)
	return nil
}
