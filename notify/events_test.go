package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/queue"
	"github.com/iov-one/docseal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"
)

func TestEncodeDecode(t *testing.T) {
	cases := map[string]Event{
		"created": &DocumentCreated{
			DocumentID:        []byte{0, 0, 0, 0, 0, 0, 0, 1},
			Creator:           bytes.Repeat([]byte{1}, 20),
			Title:             "lease",
			AuthorizedSigners: [][]byte{bytes.Repeat([]byte{2}, 20)},
			Timestamp:         1000,
		},
		"signed": &DocumentSigned{
			DocumentID:      []byte{0, 0, 0, 0, 0, 0, 0, 1},
			Signer:          bytes.Repeat([]byte{2}, 20),
			Timestamp:       2000,
			TotalSignatures: 1,
		},
	}
	for testName, ev := range cases {
		t.Run(testName, func(t *testing.T) {
			raw, err := Encode(ev)
			require.NoError(t, err)
			got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, ev, got)
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	raw, err := proto.Marshal(&Envelope{Kind: "nope"})
	require.NoError(t, err)
	_, err = Decode(raw)
	assert.True(t, errors.ErrType.Is(err))
}

func TestBrokerDeliversEmittedEvents(t *testing.T) {
	db := store.MemStore()
	ctx := docseal.WithHeight(context.Background(), 1)
	require.NoError(t, Emit(ctx, db, &DocumentSigned{Signer: []byte("a"), TotalSignatures: 1}))
	require.NoError(t, Emit(ctx, db, &DocumentSigned{Signer: []byte("b"), TotalSignatures: 2}))

	broker := NewBroker()
	events, cancel := broker.Subscribe(10)
	defer cancel()

	var logs bytes.Buffer
	relay := queue.NewRelay(Multi{
		LogPublisher{Logger: log.NewTMLogger(&logs)},
		broker,
	})
	n, err := relay.Flush(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, want := range []int64{1, 2} {
		ev := <-events
		signed, ok := ev.(*DocumentSigned)
		require.True(t, ok)
		assert.Equal(t, want, signed.TotalSignatures)
	}
	assert.Contains(t, logs.String(), KindDocumentSigned)
}

func TestBrokerPublishTimesOut(t *testing.T) {
	broker := NewBroker()
	_, cancel := broker.Subscribe(0)
	defer cancel()

	raw, err := Encode(&DocumentSigned{TotalSignatures: 1})
	require.NoError(t, err)

	ctx, done := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer done()
	err = broker.Publish(ctx, &queue.Message{Value: raw})
	assert.True(t, errors.ErrTimeout.Is(err))
}
