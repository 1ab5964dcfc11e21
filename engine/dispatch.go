package engine

import (
	"sync"

	"github.com/google/uuid"
)

// SubscriptionID identifies one subscriber for Unsubscribe.
type SubscriptionID string

type subscriber struct {
	id SubscriptionID
	h  Handler
}

// Dispatcher fans events out to subscribers in subscription order, one
// event fully delivered before the next begins. Subscribing or
// unsubscribing while a dispatch is running - from a handler or from
// another goroutine - takes effect after the in-flight event has been
// delivered to everyone.
type Dispatcher struct {
	mu          sync.Mutex
	subs        []subscriber
	dispatching bool
	pending     []func() // deferred mutations, run with mu held
}

func newDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a handler. It will see every event dispatched
// after registration takes effect.
func (d *Dispatcher) Subscribe(h Handler) SubscriptionID {
	id := SubscriptionID(uuid.NewString())
	d.mu.Lock()
	defer d.mu.Unlock()

	add := func() { d.subs = append(d.subs, subscriber{id: id, h: h}) }
	if d.dispatching {
		d.pending = append(d.pending, add)
		return id
	}
	add()
	return id
}

// Unsubscribe removes a handler. Unknown IDs are ignored, so dropping a
// subscription twice is harmless.
func (d *Dispatcher) Unsubscribe(id SubscriptionID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dispatching {
		d.pending = append(d.pending, func() { d.remove(id) })
		return
	}
	d.remove(id)
}

func (d *Dispatcher) remove(id SubscriptionID) {
	for i := range d.subs {
		if d.subs[i].id == id {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// dispatch delivers one event to every current subscriber. Handlers run
// without the lock held, so they may subscribe and unsubscribe freely.
func (d *Dispatcher) dispatch(ev PadEvent) {
	d.mu.Lock()
	d.dispatching = true
	subs := d.subs
	d.mu.Unlock()

	for _, s := range subs {
		s.h.HandlePadEvent(ev)
	}

	d.mu.Lock()
	d.dispatching = false
	for _, fn := range d.pending {
		fn()
	}
	d.pending = nil
	d.mu.Unlock()
}

// count reports the number of active subscribers.
func (d *Dispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
