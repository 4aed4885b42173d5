// Package events is an in-process publish/subscribe channel used to tell
// observers that a collection's view changed.
package events

import "sync"

// Handler receives the payload of a published event.
type Handler func(payload any)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously, in subscription order, on the publishing
// goroutine. Subscribers attached after a publish do not see it.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers h for events named name and returns a function that
// removes it. The returned function is safe to call more than once.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			// Copy so snapshots held by in-flight publishes stay intact
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, name)
			} else {
				b.subs[name] = next
			}
			return
		}
	}
}

// Publish calls every handler subscribed to name with payload.
// Handlers run outside the bus lock and may subscribe or unsubscribe.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	subs := b.subs[name]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(payload)
	}
}

// Subscribers returns the number of handlers attached to name.
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
