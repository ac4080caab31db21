package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/notify"
	"github.com/iov-one/docseal/store"
	"github.com/iov-one/docseal/x/capability"
	"github.com/iov-one/docseal/x/document"
	"github.com/iov-one/docseal/x/registry"
	"github.com/iov-one/docseal/x/sigs"
	"github.com/iov-one/docseal/x/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainID = "test-chain-1"

var blockTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestLedger(t testing.TB, handler docseal.Handler, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return blockTime })}, opts...)
	l, err := NewLedger(store.NewMemDB(), handler, opts...)
	require.NoError(t, err)
	require.NoError(t, l.InitChain(&Genesis{ChainID: testChainID}, Initializers()))
	return l
}

// signedTx returns a serialized transaction signed by p with the current
// nonce of their account.
func signedTx(t testing.TB, l *Ledger, msg docseal.Msg, p docsealtest.Participant) []byte {
	t.Helper()
	tx, err := NewTx(msg)
	require.NoError(t, err)
	var nonce int64
	err = l.View(func(db docseal.ReadOnlyKVStore) error {
		nonce, err = sigs.NextNonce(db, p.Address)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(p.Key, l.ChainID(), nonce))
	raw, err := tx.Marshal()
	require.NoError(t, err)
	return raw
}

func loadDocument(t testing.TB, l *Ledger, id []byte) *document.Document {
	t.Helper()
	var doc *document.Document
	err := l.View(func(db docseal.ReadOnlyKVStore) error {
		var err error
		doc, err = document.Get(db, id)
		return err
	})
	require.NoError(t, err)
	return doc
}

func TestLedgerSignedFlow(t *testing.T) {
	broker := notify.NewBroker()
	events, cancel := broker.Subscribe(10)
	defer cancel()

	l := newTestLedger(t, Stack(), WithPublisher(broker))
	ctx := context.Background()

	creator := docsealtest.NewParticipant()
	signer := docsealtest.NewParticipant()

	create := signedTx(t, l, &document.CreateMsg{
		Creator: creator.Address,
		Title:   "lease",
		BlobRef: "blob-1",
		Signers: []docseal.Address{signer.Address},
	}, creator)

	// Checking does not consume the nonce.
	_, err := l.Check(ctx, create)
	require.NoError(t, err)
	res, err := l.Deliver(ctx, create)
	require.NoError(t, err)
	docID := res.Data

	// A replayed transaction is rejected.
	_, err = l.Deliver(ctx, create)
	require.True(t, sigs.ErrInvalidSequence.Is(err), "%+v", err)

	// Someone who is not the creator cannot sign in their name.
	forged := signedTx(t, l, &document.CreateMsg{
		Creator: creator.Address,
		Title:   "forged",
	}, signer)
	_, err = l.Deliver(ctx, forged)
	require.True(t, errors.ErrUnauthorized.Is(err), "%+v", err)

	var capID []byte
	err = l.View(func(db docseal.ReadOnlyKVStore) error {
		c, err := capability.Find(db, signer.Address, docID, 10)
		if err == nil {
			capID = c.ID
		}
		return err
	})
	require.NoError(t, err)

	authorize := signedTx(t, l, &document.AuthorizeMsg{DocumentID: docID, Identity: docID}, signer)
	_, err = l.Check(ctx, authorize)
	require.NoError(t, err)

	sign := signedTx(t, l, &document.SignMsg{DocumentID: docID, CapID: capID}, signer)
	res, err = l.Deliver(ctx, sign)
	require.NoError(t, err)
	assert.Equal(t, document.StatusComplete.String(), res.Log)

	doc := loadDocument(t, l, docID)
	assert.Equal(t, document.StatusComplete, doc.Status)
	assert.Equal(t, docseal.AsUnixTime(blockTime), doc.Signatures[0].SignedAt)

	err = l.View(func(db docseal.ReadOnlyKVStore) error {
		total, err := registry.TotalDocuments(db)
		assert.Equal(t, int64(1), total)
		return err
	})
	require.NoError(t, err)

	n, err := l.FlushOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first := <-events
	assert.Equal(t, notify.KindDocumentCreated, first.Kind())
	second := <-events
	assert.Equal(t, notify.KindDocumentSigned, second.Kind())
	assert.Equal(t, int64(1), second.(*notify.DocumentSigned).TotalSignatures)

	// Nothing left to publish.
	n, err = l.FlushOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLedgerReceipts(t *testing.T) {
	l := newTestLedger(t, Stack())
	ctx := context.Background()
	creator := docsealtest.NewParticipant()
	signer := docsealtest.NewParticipant()

	create := signedTx(t, l, &document.CreateMsg{
		Creator: creator.Address,
		Title:   "lease",
		Signers: []docseal.Address{signer.Address},
	}, creator)
	_, err := l.Receipt(TxHash(create))
	assert.True(t, errors.ErrNotFound.Is(err), "%+v", err)

	res, err := l.Deliver(ctx, create)
	require.NoError(t, err)
	r, err := l.Receipt(TxHash(create))
	require.NoError(t, err)
	assert.Equal(t, res, r.Result())
	assert.True(t, r.Height > 0)

	capID := signerCap(t, l, signer, res.Data)
	sign := signedTx(t, l, &document.SignMsg{DocumentID: res.Data, CapID: capID}, signer)
	signed, err := l.Deliver(ctx, sign)
	require.NoError(t, err)
	r, err = l.Receipt(TxHash(sign))
	require.NoError(t, err)
	assert.Equal(t, document.StatusComplete.String(), r.Log)
	assert.Equal(t, signed.Log, r.Log)

	// A rejected transaction leaves no receipt.
	forged := signedTx(t, l, &document.CreateMsg{Creator: creator.Address, Title: "forged"}, signer)
	_, err = l.Deliver(ctx, forged)
	require.Error(t, err)
	_, err = l.Receipt(TxHash(forged))
	assert.True(t, errors.ErrNotFound.Is(err), "%+v", err)

	_, err = l.Receipt([]byte("short"))
	assert.True(t, errors.ErrInput.Is(err), "%+v", err)
}

func signerCap(t testing.TB, l *Ledger, p docsealtest.Participant, docID []byte) []byte {
	t.Helper()
	var c *capability.SignerCap
	err := l.View(func(db docseal.ReadOnlyKVStore) error {
		var err error
		c, err = capability.Find(db, p.Address, docID, 0)
		return err
	})
	require.NoError(t, err)
	return c.ID
}

func TestLedgerNotInitialized(t *testing.T) {
	l, err := NewLedger(store.NewMemDB(), Stack())
	require.NoError(t, err)
	assert.Equal(t, "", l.ChainID())

	tx, err := NewTx(&document.CreateMsg{Creator: docsealtest.NewParticipant().Address, Title: "x"})
	require.NoError(t, err)
	_, err = l.DeliverTx(context.Background(), tx)
	assert.True(t, errors.ErrState.Is(err))
	_, err = l.CheckTx(context.Background(), tx)
	assert.True(t, errors.ErrState.Is(err))
}

func TestLedgerInitChainOnce(t *testing.T) {
	db := store.NewMemDB()
	l, err := NewLedger(db, Stack())
	require.NoError(t, err)
	require.NoError(t, l.InitChain(&Genesis{ChainID: testChainID}, Initializers()))

	err = l.InitChain(&Genesis{ChainID: "other-chain"}, Initializers())
	assert.True(t, errors.ErrState.Is(err))

	// The chain id survives a reload of the store.
	reloaded, err := NewLedger(db, Stack())
	require.NoError(t, err)
	assert.Equal(t, testChainID, reloaded.ChainID())
	err = reloaded.InitChain(&Genesis{ChainID: testChainID}, Initializers())
	assert.True(t, errors.ErrState.Is(err))
}

func TestLedgerOnDisk(t *testing.T) {
	l, err := NewLedger(docsealtest.CommitKVStore(t), Stack())
	require.NoError(t, err)
	require.NoError(t, l.InitChain(&Genesis{ChainID: testChainID}, Initializers()))

	info, err := l.CommitInfo()
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Version)
	assert.NotEmpty(t, info.Hash)
	assert.Equal(t, testChainID, l.ChainID())
}

func TestLedgerRejectsGarbage(t *testing.T) {
	l := newTestLedger(t, Stack())
	cases := map[string]struct {
		raw     []byte
		wantErr *errors.Error
	}{
		"empty": {
			raw:     nil,
			wantErr: errors.ErrEmpty,
		},
		"not a transaction": {
			raw:     []byte{0xff, 0xff, 0xff, 0xff},
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			_, err := l.Deliver(context.Background(), tc.raw)
			assert.True(t, tc.wantErr.Is(err), "%+v", err)
		})
	}

	// A transaction without a message is rejected by the stack.
	raw, err := (&Tx{}).Marshal()
	require.NoError(t, err)
	_, err = l.Deliver(context.Background(), raw)
	assert.Error(t, err)
}

// ctxLedger returns a ledger that authenticates signers from the context
// instead of transaction signatures.
func ctxLedger(t testing.TB) (*Ledger, *docsealtest.CtxAuth) {
	auth := &docsealtest.CtxAuth{Key: "auth"}
	r := NewRouter()
	document.RegisterRoutes(r, auth)
	handler := ChainDecorators(utils.NewRecovery()).WithHandler(r)
	return newTestLedger(t, handler), auth
}

func TestLedgerConcurrentDoubleSign(t *testing.T) {
	l, auth := ctxLedger(t)
	creator := docsealtest.NewParticipant()
	signer := docsealtest.NewParticipant()
	other := docsealtest.NewParticipant()

	deliver := func(msg docseal.Msg, p docsealtest.Participant) (*docseal.DeliverResult, error) {
		tx, err := NewTx(msg)
		require.NoError(t, err)
		ctx := auth.SetConditions(context.Background(), p.Condition)
		return l.DeliverTx(ctx, tx)
	}

	res, err := deliver(&document.CreateMsg{
		Creator: creator.Address,
		Title:   "contract",
		Signers: []docseal.Address{signer.Address, other.Address},
	}, creator)
	require.NoError(t, err)
	docID := res.Data

	var capID []byte
	err = l.View(func(db docseal.ReadOnlyKVStore) error {
		c, err := capability.Find(db, signer.Address, docID, 10)
		if err == nil {
			capID = c.ID
		}
		return err
	})
	require.NoError(t, err)

	const attempts = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := deliver(&document.SignMsg{DocumentID: docID, CapID: capID}, signer)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var succeeded, alreadySigned int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case document.ErrAlreadySigned.Is(err):
			alreadySigned++
		default:
			t.Fatalf("unexpected error: %+v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, alreadySigned)

	doc := loadDocument(t, l, docID)
	assert.Len(t, doc.Signatures, 1)
	assert.Equal(t, document.StatusPartial, doc.Status)
}

func TestLedgerParallelDocuments(t *testing.T) {
	l, auth := ctxLedger(t)

	const creators = 8
	var wg sync.WaitGroup
	ids := make(chan []byte, creators)
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := docsealtest.NewParticipant()
			tx, err := NewTx(&document.CreateMsg{Creator: p.Address, Title: "parallel"})
			if err != nil {
				t.Error(err)
				return
			}
			ctx := auth.SetConditions(context.Background(), p.Condition)
			res, err := l.DeliverTx(ctx, tx)
			if err != nil {
				t.Error(err)
				return
			}
			ids <- res.Data
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[string(id)], "document id %X allocated twice", id)
		seen[string(id)] = true
	}
	assert.Len(t, seen, creators)

	err := l.View(func(db docseal.ReadOnlyKVStore) error {
		total, err := registry.TotalDocuments(db)
		assert.Equal(t, int64(creators), total)
		return err
	})
	require.NoError(t, err)
}

func TestLedgerRun(t *testing.T) {
	broker := notify.NewBroker()
	events, cancel := broker.Subscribe(1)
	defer cancel()

	l := newTestLedger(t, Stack(), WithPublisher(broker), WithFlushInterval(time.Hour))
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- l.Run(ctx) }()

	creator := docsealtest.NewParticipant()
	_, err := l.Deliver(context.Background(), signedTx(t, l, &document.CreateMsg{
		Creator: creator.Address,
		Title:   "published after commit",
	}, creator))
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "published after commit", ev.(*notify.DocumentCreated).Title)
	case <-time.After(5 * time.Second):
		t.Fatal("event not published")
	}

	stop()
	assert.Equal(t, context.Canceled, <-done)
}
