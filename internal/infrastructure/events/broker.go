package events

import (
	"context"
	"log/slog"
	"sync"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/ports"
)

// AllUsers subscribes to the events of every user.
const AllUsers = "*"

const subscriberBuffer = 32

// Broker fans quote events out to in-process subscribers.
// A subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan ports.QuoteEvent
}

var _ ports.QuoteEvents = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[string][]chan ports.QuoteEvent)}
}

func (b *Broker) Publish(ctx context.Context, event ports.QuoteEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, key := range []string{event.UserID, AllUsers} {
		for _, ch := range b.subscribers[key] {
			select {
			case ch <- event:
			default:
				logging.Warn(ctx, "quote event dropped for slow subscriber",
					slog.String("component", "events"),
					slog.String("quote_id", event.QuoteID),
					slog.String("subscriber", key),
				)
			}
		}
	}
}

// Subscribe returns the event channel of userID and a func that detaches it.
func (b *Broker) Subscribe(userID string) (<-chan ports.QuoteEvent, func()) {
	ch := make(chan ports.QuoteEvent, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[userID] = append(b.subscribers[userID], ch)
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.remove(userID, ch)
		})
	}
}

func (b *Broker) remove(userID string, ch chan ports.QuoteEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subscribers[userID]
	kept := current[:0]
	for _, c := range current {
		if c != ch {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(b.subscribers, userID)
	} else {
		b.subscribers[userID] = kept
	}
	close(ch)
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, chans := range b.subscribers {
		n += len(chans)
	}
	return n
}
