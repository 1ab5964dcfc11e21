package device

import (
	"bytes"
	"testing"

	"softstep/wire"
)

func TestSplitWire(t *testing.T) {
	led, err := wire.EncodeLed(wire.LedCommand{Led: 3, Color: wire.Red, Mode: wire.On})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	parts := splitWire(led)
	if len(parts) != 6 {
		t.Fatalf("led burst split into %d parts, want 6", len(parts))
	}
	for i, p := range parts {
		if len(p) != 3 || p[0] != 0xB0 {
			t.Errorf("part %d is % X, want a control change", i, p)
		}
	}

	single := []byte{0xB0, 0x28, 0x00}
	parts = splitWire(single)
	if len(parts) != 1 || !bytes.Equal(parts[0], single) {
		t.Errorf("single control split into %v", parts)
	}

	frame := wire.EncodeStatusRequest()
	parts = splitWire(frame)
	if len(parts) != 1 || !bytes.Equal(parts[0], frame) {
		t.Errorf("frame was split into %d parts", len(parts))
	}

	display := wire.EncodeDisplay("HELO")
	if parts = splitWire(display); len(parts) != 4 {
		t.Errorf("display burst split into %d parts, want 4", len(parts))
	}
}

func TestMatchesPort(t *testing.T) {
	testCases := []struct {
		name, selector string
		want           bool
	}{
		{"SSCOM MIDI 1", "SSCOM", true},
		{"sscom midi 1", "SSCOM", true},
		{"SSCOM MIDI 1", "sscom midi", true},
		{"Launchpad X LPX MIDI", "SSCOM", false},
		{"serial:/dev/ttyUSB0", "serial:/dev/ttyUSB0", true},
	}
	for _, tc := range testCases {
		if got := matchesPort(tc.name, tc.selector); got != tc.want {
			t.Errorf("matchesPort(%q, %q) = %v, want %v", tc.name, tc.selector, got, tc.want)
		}
	}
}

func TestWatcherTransitions(t *testing.T) {
	var ports []string
	w := NewWatcher("SSCOM")
	w.listPorts = func() []string { return ports }

	// Nothing there yet: no event.
	w.scan()
	select {
	case ev := <-w.events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
	if w.Present() {
		t.Fatal("present with no ports")
	}

	// Device shows up.
	ports = []string{"Launchpad X LPX MIDI", "SSCOM MIDI 1"}
	w.scan()
	ev := <-w.events
	if ev.Type != Connected || ev.Name != "SSCOM MIDI 1" {
		t.Fatalf("got %+v, want connect of SSCOM MIDI 1", ev)
	}
	if !w.Present() {
		t.Fatal("not present after connect")
	}

	// Still there: no duplicate event.
	w.scan()
	select {
	case ev := <-w.events:
		t.Fatalf("duplicate event %+v", ev)
	default:
	}

	// Gone.
	ports = nil
	w.scan()
	ev = <-w.events
	if ev.Type != Disconnected || ev.Name != "SSCOM MIDI 1" {
		t.Fatalf("got %+v, want disconnect of SSCOM MIDI 1", ev)
	}
	if w.Present() {
		t.Fatal("still present after disconnect")
	}
}
