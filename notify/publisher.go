package notify

import (
	"context"
	"sync"

	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/queue"
	"github.com/tendermint/tendermint/libs/log"
)

// LogPublisher writes every event to the log.
type LogPublisher struct {
	Logger log.Logger
}

var _ queue.Publisher = LogPublisher{}

func (p LogPublisher) Publish(ctx context.Context, msg *queue.Message) error {
	ev, err := Decode(msg.Value)
	if err != nil {
		return err
	}
	p.Logger.Info("notification", "kind", ev.Kind(), "event", ev.String())
	return nil
}

// Broker delivers events to in process subscribers. A subscriber that does
// not keep up blocks publishing until the context is done.
type Broker struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

var _ queue.Publisher = (*Broker)(nil)

// NewBroker returns a broker without subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel receiving all events published from now on.
// Call cancel to unsubscribe, the channel is closed then.
func (b *Broker) Subscribe(buffer int) (events <-chan Event, cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker) Publish(ctx context.Context, msg *queue.Message) error {
	ev, err := Decode(msg.Value)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return errors.Wrap(errors.ErrTimeout, ctx.Err().Error())
		}
	}
	return nil
}

// Multi publishes to all publishers in order and stops at the first error.
type Multi []queue.Publisher

func (m Multi) Publish(ctx context.Context, msg *queue.Message) error {
	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
