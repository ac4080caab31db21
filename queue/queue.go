/*
Package queue implements a transactional outbox.

Messages are written to the outbox in the same cache wrap as the state
change that produced them, so they are stored if and only if the change is.
A Relay reads committed messages in order, hands them to a Publisher and
removes them once published. Delivery is at least once: a message whose
removal was not written yet is published again by the next flush.
*/
package queue

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

var prefix = []byte("_outbox:")

// Put appends the message to the outbox. Messages are ordered by the height
// found in the context, then by the order of Put calls within the same
// height.
func Put(ctx docseal.Context, db docseal.KVStore, msg []byte) error {
	height, ok := docseal.GetHeight(ctx)
	if !ok {
		return errors.Wrap(errors.ErrHuman, "height missing in context")
	}
	if len(msg) == 0 {
		return errors.Wrap(errors.ErrEmpty, "message")
	}

	for idx := uint32(0); ; idx++ {
		key := outboxKey(height, idx)
		if ok, err := db.Has(key); err != nil {
			return errors.Wrap(err, "cannot check key existence")
		} else if ok {
			continue
		}
		if err := db.Set(key, msg); err != nil {
			return errors.Wrap(err, "cannot update outbox")
		}
		return nil
	}
}

// Message is an outbox entry.
type Message struct {
	Key   []byte
	Value []byte
}

// Pop removes the oldest message from the outbox and returns it. It returns
// ErrEmpty if the outbox is empty.
func Pop(db docseal.KVStore) (*Message, error) {
	msg, err := peek(db)
	if err != nil {
		return nil, err
	}
	if err := db.Delete(msg.Key); err != nil {
		return nil, errors.Wrap(err, "cannot delete")
	}
	return msg, nil
}

// Len returns the number of messages waiting in the outbox.
func Len(db docseal.ReadOnlyKVStore) (int, error) {
	it, err := db.Iterator(prefix, prefixEnd())
	if err != nil {
		return 0, errors.Wrap(err, "iterator")
	}
	defer it.Close()
	var n int
	for it.Valid() {
		n++
		if err := it.Next(); err != nil {
			return 0, errors.Wrap(err, "iterator")
		}
	}
	return n, nil
}

func peek(db docseal.ReadOnlyKVStore) (*Message, error) {
	it, err := db.Iterator(prefix, prefixEnd())
	if err != nil {
		return nil, errors.Wrap(err, "iterator")
	}
	defer it.Close()
	if !it.Valid() {
		return nil, errors.Wrap(errors.ErrEmpty, "outbox")
	}
	return &Message{
		Key:   append([]byte(nil), it.Key()...),
		Value: append([]byte(nil), it.Value()...),
	}, nil
}

func outboxKey(height int64, idx uint32) []byte {
	key := make([]byte, len(prefix)+12)
	n := copy(key, prefix)
	binary.BigEndian.PutUint64(key[n:], uint64(height))
	binary.BigEndian.PutUint32(key[n+8:], idx)
	return key
}

func prefixEnd() []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}

// Publisher delivers outbox messages to their consumers.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// Cacher is a store that can be cache wrapped. Both committed stores and
// cache wraps are.
type Cacher interface {
	CacheWrap() docseal.KVCacheWrap
}

// Relay moves messages from the outbox to a publisher.
type Relay struct {
	pub Publisher
	// Flushes must not run concurrently or a message would be published
	// twice.
	mu sync.Mutex
}

// NewRelay returns a relay publishing with given publisher.
func NewRelay(pub Publisher) *Relay {
	return &Relay{pub: pub}
}

// Flush publishes all messages found in the outbox and returns their
// number. Publishing stops at the first failure. Messages published so far
// are removed and the rest is left for the next flush.
func (r *Relay) Flush(ctx context.Context, db Cacher) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cache := db.CacheWrap()
	defer cache.Discard()

	var published int
	for {
		msg, err := peek(cache)
		switch {
		case err == nil:
		case errors.ErrEmpty.Is(err):
			if err := cache.Write(); err != nil {
				return 0, errors.Wrap(err, "cache write")
			}
			return published, nil
		default:
			return 0, errors.Wrap(err, "cannot read outbox")
		}

		if err := r.pub.Publish(ctx, msg); err != nil {
			if werr := cache.Write(); werr != nil {
				return 0, errors.Wrap(werr, "cache write")
			}
			return published, errors.Wrapf(err, "cannot publish %X", msg.Key)
		}
		if err := cache.Delete(msg.Key); err != nil {
			return 0, errors.Wrap(err, "cannot delete")
		}
		published++
	}
}
