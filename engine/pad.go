package engine

import (
	"math"
	"time"

	"softstep/config"
)

// transition is one state machine output, ready to become a PadEvent.
type transition struct {
	Type     EventType
	Pressure float64
}

// dirGesture walks one pad direction through idle/pressed/held. A
// press arms at On and only releases strictly under Off, so pressure
// riding a single threshold cannot chatter.
type dirGesture struct {
	phase     Phase
	current   float64
	emitted   float64   // pressure at the last emitted event
	holdSince time.Time // zero while the hold clock is unarmed
}

// feed advances the gesture with a new pressure sample.
func (g *dirGesture) feed(p float64, now time.Time, th config.Thresholds) []transition {
	g.current = p
	var out []transition

	switch g.phase {
	case PhaseIdle:
		if p >= th.On {
			g.phase = PhasePressed
			g.emitted = p
			g.holdSince = time.Time{}
			if p >= th.Hold {
				g.holdSince = now
			}
			out = append(out, transition{Pressed, p})
		}

	case PhasePressed, PhaseHeld:
		if p < th.Off {
			g.phase = PhaseIdle
			g.holdSince = time.Time{}
			return append(out, transition{Released, p})
		}
		if t, ok := g.advanceHold(now, th); ok {
			out = append(out, t)
		}
		if math.Abs(p-g.emitted) > th.MinDelta {
			g.emitted = p
			out = append(out, transition{PressureChanged, p})
		}
	}
	return out
}

// tick advances only the hold clock, so a perfectly steady press still
// promotes without another sample arriving.
func (g *dirGesture) tick(now time.Time, th config.Thresholds) (transition, bool) {
	if g.phase != PhasePressed {
		return transition{}, false
	}
	return g.advanceHold(now, th)
}

func (g *dirGesture) advanceHold(now time.Time, th config.Thresholds) (transition, bool) {
	if g.phase != PhasePressed {
		return transition{}, false
	}
	if g.current < th.Hold {
		// Dropping under the hold threshold re-arms the clock; only a
		// release ends the press.
		g.holdSince = time.Time{}
		return transition{}, false
	}
	if g.holdSince.IsZero() {
		g.holdSince = now
		return transition{}, false
	}
	if now.Sub(g.holdSince) < th.HoldAfter {
		return transition{}, false
	}
	g.phase = PhaseHeld
	return transition{Held, g.current}, true
}

// padState owns one pad's normalized sensor snapshot and a gesture
// machine per direction the pad can express.
type padState struct {
	spec     config.PadSpec
	raw      [4]float64
	gestures [directionCount]*dirGesture
}

func newPadState(spec config.PadSpec) *padState {
	ps := &padState{spec: spec}
	ps.gestures[Center] = &dirGesture{}
	if spec.Kind == config.PadMain {
		for _, d := range []Direction{Up, Down, Left, Right} {
			ps.gestures[d] = &dirGesture{}
		}
	}
	return ps
}

// directions returns the directions this pad resolves.
func (ps *padState) directions() []Direction {
	if ps.spec.Kind == config.PadMain {
		return []Direction{Center, Up, Down, Left, Right}
	}
	return []Direction{Center}
}

// pressure combines the sensor snapshot into one direction's value.
// Diagonal layouts pair corners; edge layouts read straight through.
// Sums clamp to 1 so a heavy center stomp cannot exceed full scale.
func (ps *padState) pressure(dir Direction, layout config.CornerLayout) float64 {
	if ps.spec.Sensors == 1 {
		if dir != Center {
			return 0
		}
		return ps.raw[0]
	}

	var v float64
	if layout == config.CornersDiagonal {
		tl, tr, bl, br := ps.raw[0], ps.raw[1], ps.raw[2], ps.raw[3]
		switch dir {
		case Center:
			v = tl + tr + bl + br
		case Up:
			v = tl + tr
		case Down:
			v = bl + br
		case Left:
			v = tl + bl
		case Right:
			v = tr + br
		}
	} else {
		t, r, l, b := ps.raw[0], ps.raw[1], ps.raw[2], ps.raw[3]
		switch dir {
		case Center:
			v = t + r + l + b
		case Up:
			v = t
		case Down:
			v = b
		case Left:
			v = l
		case Right:
			v = r
		}
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
