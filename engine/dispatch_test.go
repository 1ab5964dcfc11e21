package engine

import (
	"testing"
)

func TestDispatchOrder(t *testing.T) {
	d := newDispatcher()
	var log []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		d.Subscribe(HandlerFunc(func(PadEvent) { log = append(log, name) }))
	}

	d.dispatch(PadEvent{Type: Pressed})
	d.dispatch(PadEvent{Type: Released})

	want := []string{"a", "b", "c", "a", "b", "c"}
	if len(log) != len(want) {
		t.Fatalf("delivery log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("delivery log = %v, want %v", log, want)
		}
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	d := newDispatcher()
	var log []string

	d.Subscribe(HandlerFunc(func(PadEvent) { log = append(log, "a") }))
	var selfID SubscriptionID
	selfID = d.Subscribe(HandlerFunc(func(PadEvent) {
		log = append(log, "b")
		d.Unsubscribe(selfID)
	}))
	d.Subscribe(HandlerFunc(func(PadEvent) { log = append(log, "c") }))

	// the event in flight still reaches everyone
	d.dispatch(PadEvent{Type: Pressed})
	if got := len(log); got != 3 {
		t.Fatalf("first event reached %d handlers, want 3: %v", got, log)
	}

	// b is gone for the next one
	log = nil
	d.dispatch(PadEvent{Type: Released})
	if len(log) != 2 || log[0] != "a" || log[1] != "c" {
		t.Errorf("second event log = %v, want [a c]", log)
	}
	if d.count() != 2 {
		t.Errorf("subscriber count = %d, want 2", d.count())
	}
}

func TestSubscribeDuringDispatch(t *testing.T) {
	d := newDispatcher()
	var log []string
	added := false

	d.Subscribe(HandlerFunc(func(PadEvent) {
		log = append(log, "a")
		if !added {
			added = true
			d.Subscribe(HandlerFunc(func(PadEvent) { log = append(log, "late") }))
		}
	}))

	// the late subscriber must not see the event that created it
	d.dispatch(PadEvent{Type: Pressed})
	if len(log) != 1 || log[0] != "a" {
		t.Fatalf("first event log = %v, want [a]", log)
	}

	log = nil
	d.dispatch(PadEvent{Type: Released})
	if len(log) != 2 || log[0] != "a" || log[1] != "late" {
		t.Errorf("second event log = %v, want [a late]", log)
	}
}

func TestUnsubscribeUnknown(t *testing.T) {
	d := newDispatcher()
	id := d.Subscribe(HandlerFunc(func(PadEvent) {}))

	d.Unsubscribe("no-such-subscription")
	if d.count() != 1 {
		t.Fatalf("unknown unsubscribe changed count to %d", d.count())
	}

	d.Unsubscribe(id)
	d.Unsubscribe(id)
	if d.count() != 0 {
		t.Errorf("count after double unsubscribe = %d, want 0", d.count())
	}
}
