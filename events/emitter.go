// Package events implements the fan-out between graph mutations and
// rule engine instances. It mirrors the source's subscribe/emit shape
// but replaces its callable-or-object polymorphism with one
// capability, Subscriber, per SPEC_FULL.md's redesign notes.
package events

import (
	"sync"

	"github.com/graphrules/engine/ast"
)

// Subscriber receives change events delivered by an Emitter.
type Subscriber interface {
	Deliver(event ast.ChangeEvent)
}

// SubscriberFunc adapts a bare function to the Subscriber interface.
type SubscriberFunc func(ast.ChangeEvent)

// Deliver calls f(event).
func (f SubscriberFunc) Deliver(event ast.ChangeEvent) { f(event) }

// Emitter is pure dispatch: it holds a subscriber list and invokes
// each one, in registration order, on every Emit call. It performs no
// filtering and carries no other state. Subscribers must not mutate
// the subscriber list during dispatch.
type Emitter struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// New returns an empty Emitter.
func New() *Emitter {
	return &Emitter{}
}

// Subscribe registers a subscriber.
func (e *Emitter) Subscribe(s Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, s)
}

// Unsubscribe removes the first registration matching s, if present.
// s must be a comparable Subscriber; a SubscriberFunc-wrapped callable
// cannot be unsubscribed this way since func values are not
// comparable.
func (e *Emitter) Unsubscribe(s Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subscribers {
		if sub == s {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			return
		}
	}
}

// Emit invokes every subscriber, in registration order, with event.
func (e *Emitter) Emit(event ast.ChangeEvent) {
	e.mu.RLock()
	subs := make([]Subscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.RUnlock()

	for _, s := range subs {
		s.Deliver(event)
	}
}
