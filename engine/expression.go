package engine

import (
	"math"
	"sync"
	"time"
)

// expressionTick is the integration interval. Pressure difference is
// sampled and accumulated at this rate while the expression is running.
const expressionTick = 100 * time.Millisecond

// Expression turns a pair of pads into a virtual expression pedal: one
// pad nudges the value up, the other down, and leaning harder moves it
// faster. The value accumulates over time rather than tracking raw
// pressure, so light taps give fine control and a firm press sweeps.
type Expression struct {
	eng      *Engine
	upPad    int
	downPad  int
	dir      Direction
	curve    float64
	onChange func(float64)

	mu      sync.Mutex
	up      float64
	down    float64
	value   float64
	running bool
	sub     SubscriptionID
	quit    chan struct{}
}

// NewExpression builds an expression pedal over two pads, watching
// their center pressure. The curve comes from the session profile:
// higher curves flatten the low end so a resting foot drifts less.
func NewExpression(eng *Engine, upPad, downPad int, onChange func(float64)) *Expression {
	return &Expression{
		eng:      eng,
		upPad:    upPad,
		downPad:  downPad,
		dir:      Center,
		curve:    float64(eng.Profile().Curve),
		onChange: onChange,
	}
}

// Start subscribes to the pads and begins integrating. Safe to call
// once per Stop.
func (x *Expression) Start() {
	x.mu.Lock()
	if x.running {
		x.mu.Unlock()
		return
	}
	x.running = true
	x.quit = make(chan struct{})
	quit := x.quit
	x.mu.Unlock()

	x.sub = x.eng.Subscribe(HandlerFunc(x.track))

	go func() {
		ticker := time.NewTicker(expressionTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				x.step()
			case <-quit:
				return
			case <-x.eng.Done():
				return
			}
		}
	}()
}

// Stop ends integration and drops the subscription. The value holds
// where it was.
func (x *Expression) Stop() {
	x.mu.Lock()
	if !x.running {
		x.mu.Unlock()
		return
	}
	x.running = false
	close(x.quit)
	x.mu.Unlock()

	x.eng.Unsubscribe(x.sub)
}

// Value reports the current pedal position in [0, 1].
func (x *Expression) Value() float64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.value
}

// SetValue jumps the pedal to a position, clamped to [0, 1].
func (x *Expression) SetValue(v float64) {
	x.mu.Lock()
	x.value = clamp01(v)
	x.mu.Unlock()
}

func (x *Expression) track(ev PadEvent) {
	if ev.Direction != x.dir {
		return
	}
	x.mu.Lock()
	switch ev.Pad {
	case x.upPad:
		x.up = ev.Pressure
	case x.downPad:
		x.down = ev.Pressure
	}
	x.mu.Unlock()
}

// step integrates one tick: the signed pressure difference raised to an
// odd power, so direction survives and light pressure barely moves the
// value. The change callback fires every tick, matching how a real
// pedal's position stream behaves.
func (x *Expression) step() {
	x.mu.Lock()
	diff := x.up - x.down
	exp := 2*x.curve + 1
	delta := math.Pow(math.Abs(diff), exp)
	if diff < 0 {
		delta = -delta
	}
	x.value = clamp01(x.value + delta)
	v := x.value
	cb := x.onChange
	x.mu.Unlock()

	if cb != nil {
		cb(v)
	}
}
