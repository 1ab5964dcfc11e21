// Package engine turns the controller's raw sensor traffic into pad
// gestures, and drives its LEDs and display back the other way. One
// Engine owns the device session: a single loop decodes, calibrates,
// advances the per-pad state machines and dispatches events, so
// consumers see a totally ordered stream.
package engine

import "time"

// EventType classifies a pad event.
type EventType int

const (
	Pressed EventType = iota
	Released
	PressureChanged
	Held
)

func (t EventType) String() string {
	switch t {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	case PressureChanged:
		return "pressure"
	case Held:
		return "held"
	}
	return "invalid"
}

// Direction is the region of a pad a gesture applies to. Main pads
// resolve all five from their corner sensors; single-sensor pads only
// ever report Center.
type Direction int

const (
	Center Direction = iota
	Up
	Down
	Left
	Right

	directionCount = 5
)

func (d Direction) String() string {
	switch d {
	case Center:
		return "center"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "invalid"
}

// PadEvent is one gesture observation. Events are immutable and arrive
// in the order the device produced the underlying samples.
type PadEvent struct {
	Type      EventType
	Pad       int
	Direction Direction
	Pressure  float64
	Time      time.Time
}

// Handler consumes pad events.
type Handler interface {
	HandlePadEvent(ev PadEvent)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(PadEvent)

func (f HandlerFunc) HandlePadEvent(ev PadEvent) { f(ev) }

// Phase is where a pad direction sits in the press cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePressed
	PhaseHeld
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePressed:
		return "pressed"
	case PhaseHeld:
		return "held"
	}
	return "invalid"
}
