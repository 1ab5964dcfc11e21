package device

import (
	"context"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.bug.st/serial"

	"softstep/debug"
)

// Event is emitted when the watched device appears or goes away.
type Event struct {
	Type EventType
	Name string
}

type EventType int

const (
	Connected EventType = iota
	Disconnected
)

// Watcher polls for the presence of a selector's endpoint and reports
// transitions. It never opens anything; reconnect policy stays with the
// caller.
type Watcher struct {
	selector string
	events   chan Event
	pollRate time.Duration

	mu       sync.RWMutex
	present  bool
	lastName string

	// listPorts is swappable for tests.
	listPorts func() []string
}

// NewWatcher creates a watcher for the given selector.
func NewWatcher(selector string) *Watcher {
	if selector == "" {
		selector = DefaultName
	}
	return &Watcher{
		selector:  selector,
		events:    make(chan Event, 8),
		pollRate:  time.Second,
		listPorts: listPortNames,
	}
}

// Events returns the channel of presence transitions. It is closed when
// Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Present reports whether the endpoint was there at the last poll.
func (w *Watcher) Present() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.present
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	// Initial scan
	w.scan()

	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	// Enumerate with a timeout guard; some MIDI backends can hang a
	// stuck service and the loop must survive that.
	ch := make(chan []string, 1)
	go func() {
		ch <- w.listPorts()
	}()

	var names []string
	select {
	case names = <-ch:
	case <-time.After(3 * time.Second):
		debug.Log("device", "port scan timed out, skipping")
		return
	}

	found := ""
	for _, name := range names {
		if matchesPort(name, w.selector) {
			found = name
			break
		}
	}

	w.mu.Lock()
	was := w.present
	w.present = found != ""
	if w.present {
		w.lastName = found
	}
	name := w.lastName
	w.mu.Unlock()

	switch {
	case !was && found != "":
		w.events <- Event{Type: Connected, Name: found}
	case was && found == "":
		w.events <- Event{Type: Disconnected, Name: name}
	}
}

// listPortNames merges MIDI input names and serial paths into one
// namespace, serial entries carrying the same prefix Open expects.
func listPortNames() []string {
	var names []string
	for _, in := range gomidi.GetInPorts() {
		names = append(names, in.String())
	}
	if paths, err := serial.GetPortsList(); err == nil {
		for _, p := range paths {
			names = append(names, serialPrefix+p)
		}
	}
	return names
}
