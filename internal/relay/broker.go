package relay

import (
	"log/slog"
	"sync"

	"github.com/shareyt/backend/internal/social"
)

const subscriberBuffer = 64

// Broker fans committed change events out to per-user subscribers. It is
// the in-process stand-in for a real-time change feed: mutating operations
// publish, relay sessions subscribe.
type Broker struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[chan social.Event]struct{}
}

// NewBroker constructs an empty broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		logger: logger,
		subs:   make(map[string]map[chan social.Event]struct{}),
	}
}

// Publish delivers the event to every subscriber of every affected user.
// Delivery never blocks; a subscriber with a full buffer misses the event
// and catches up on the next one.
func (b *Broker) Publish(event social.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, uid := range event.Users {
		for ch := range b.subs[uid] {
			select {
			case ch <- event:
			default:
				b.logger.Warn("dropping event for slow subscriber", "uid", uid, "type", event.Type)
			}
		}
	}
}

// Subscribe registers a new subscription for the user's events.
func (b *Broker) Subscribe(uid string) chan social.Event {
	ch := make(chan social.Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[uid] == nil {
		b.subs[uid] = make(map[chan social.Event]struct{})
	}
	b.subs[uid][ch] = struct{}{}
	b.mu.Unlock()

	return ch
}

// Unsubscribe removes a previously registered subscription.
func (b *Broker) Unsubscribe(uid string, ch chan social.Event) {
	b.mu.Lock()
	if set, ok := b.subs[uid]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(b.subs, uid)
		}
	}
	b.mu.Unlock()
}

var _ social.Publisher = (*Broker)(nil)
