// Package eventbus decouples session-internal events from external observers.
// The bus is constructed with a fixed registry of recognized event names so
// that typos are caught in testing without crashing production dispatch.
package eventbus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives one published payload.
type Handler func(payload any)

type subscription struct {
	id int
	fn Handler
}

// Bus is a validated publish/subscribe channel. Listeners run in
// registration order; a listener that panics is isolated and logged.
type Bus struct {
	log zerolog.Logger

	mu        sync.Mutex
	known     map[string]struct{}
	nextID    int
	listeners map[string][]subscription
}

// New creates a bus recognizing exactly the given event names.
func New(log zerolog.Logger, names ...string) *Bus {
	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}
	return &Bus{
		log:       log,
		known:     known,
		listeners: make(map[string][]subscription),
	}
}

// Subscribe registers a listener and returns its unsubscribe handle.
// Subscribing to an unrecognized name is logged and still registered.
func (b *Bus) Subscribe(name string, fn Handler) func() {
	b.mu.Lock()
	if _, ok := b.known[name]; !ok {
		b.log.Warn().Str("event", name).Msg("subscribe to unrecognized event name")
	}
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.listeners[name]
		for i, sub := range subs {
			if sub.id == id {
				b.listeners[name] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish invokes each current listener with payload. The listener list is
// snapshotted first, so listeners may subscribe or unsubscribe during
// dispatch without corrupting the in-progress iteration.
func (b *Bus) Publish(name string, payload any) {
	b.mu.Lock()
	if _, ok := b.known[name]; !ok {
		b.log.Warn().Str("event", name).Msg("publish of unrecognized event name")
	}
	subs := b.listeners[name]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.dispatch(name, sub, payload)
	}
}

func (b *Bus) dispatch(name string, sub subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("event", name).Interface("panic", r).Msg("event listener failed")
		}
	}()
	sub.fn(payload)
}
