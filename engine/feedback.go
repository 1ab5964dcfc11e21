package engine

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lucasb-eyer/go-colorful"

	"softstep/debug"
	"softstep/wire"
)

var ledSendCount uint64

// FlushError lists exactly which outputs failed, so a caller can retry
// or give up per item. Everything not listed was written successfully
// and will not be resent.
type FlushError struct {
	Leds      []int
	Display   bool
	Backlight bool
}

func (e *FlushError) Error() string {
	var parts []string
	if len(e.Leds) > 0 {
		parts = append(parts, fmt.Sprintf("leds %v", e.Leds))
	}
	if e.Display {
		parts = append(parts, "display")
	}
	if e.Backlight {
		parts = append(parts, "backlight")
	}
	return "flush failed: " + strings.Join(parts, ", ")
}

type ledState struct {
	color wire.Color
	mode  wire.LedMode
}

// Feedback holds the desired output state - LEDs, display, backlight -
// and writes only what changed since the last successful flush. Setters
// never touch the wire; Flush does, so a burst of set calls costs one
// write per item that actually differs.
type Feedback struct {
	mu   sync.Mutex
	send func(msg []byte) error

	desired [wire.LedCount]ledState
	sent    [wire.LedCount]ledState
	sentOK  [wire.LedCount]bool

	text     string
	sentText string
	textOK   bool

	light     bool
	lightSet  bool // backlight untouched until someone asks for it
	sentLight bool
	lightOK   bool
}

func newFeedback(send func(msg []byte) error) *Feedback {
	f := &Feedback{send: send}
	// Assume dark until told otherwise; ResetLeds forgets this and
	// forces a full repaint.
	for i := range f.sentOK {
		f.sentOK[i] = true
	}
	return f
}

// SetLed records the desired color and mode for one LED. With
// concurrent setters the last write before a flush wins.
func (f *Feedback) SetLed(led int, color wire.Color, mode wire.LedMode) error {
	if led < 0 || led >= wire.LedCount {
		return fmt.Errorf("led index %d out of range", led)
	}
	if color > wire.Yellow || mode > wire.Flash {
		return fmt.Errorf("led state %v/%v out of range", color, mode)
	}
	f.mu.Lock()
	f.desired[led] = ledState{color: color, mode: mode}
	f.mu.Unlock()
	return nil
}

// SetLedColor picks the nearest thing the tri-color hardware can show
// for an RGB value. Dark colors turn the LED off; everything else maps
// to green, red or yellow by perceptual distance.
func (f *Feedback) SetLedColor(led int, r, g, b uint8) error {
	color, mode := nearestLed(r, g, b)
	return f.SetLed(led, color, mode)
}

// ResetLeds marks every LED off and forgets what was sent, so the next
// flush rewrites them all. Used on open and close, when the device's
// real state is unknown.
func (f *Feedback) ResetLeds() {
	f.mu.Lock()
	for i := range f.desired {
		f.desired[i] = ledState{}
		f.sentOK[i] = false
	}
	f.mu.Unlock()
}

// SetDisplay records text for the four-character LCD.
func (f *Feedback) SetDisplay(text string) {
	fitted := wire.FitDisplay(text)
	f.mu.Lock()
	f.text = fitted
	f.mu.Unlock()
}

// SetBacklight records the desired backlight state.
func (f *Feedback) SetBacklight(on bool) {
	f.mu.Lock()
	f.light = on
	f.lightSet = true
	f.mu.Unlock()
}

// Led reports the desired state of one LED.
func (f *Feedback) Led(led int) (wire.Color, wire.LedMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if led < 0 || led >= wire.LedCount {
		return wire.Green, wire.Off
	}
	s := f.desired[led]
	return s.color, s.mode
}

// Display reports the desired display text.
func (f *Feedback) Display() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// Flush writes every difference between desired and sent state. Items
// that fail stay marked unsent and are reported in a FlushError; the
// rest will not be written again until they change. Flushing an
// unchanged state sends nothing.
func (f *Feedback) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ferr FlushError
	for i := range f.desired {
		if f.sentOK[i] && f.sent[i] == f.desired[i] {
			continue
		}
		if err := f.flushLed(i); err != nil {
			debug.Log("feedback", "led %d write failed: %v", i, err)
			f.sentOK[i] = false
			ferr.Leds = append(ferr.Leds, i)
			continue
		}
		f.sent[i] = f.desired[i]
		f.sentOK[i] = true
	}

	if f.text != "" || f.textOK {
		if !f.textOK || f.sentText != f.text {
			if err := f.send(wire.EncodeDisplay(f.text)); err != nil {
				debug.Log("feedback", "display write failed: %v", err)
				f.textOK = false
				ferr.Display = true
			} else {
				f.sentText = f.text
				f.textOK = true
			}
		}
	}

	if f.lightSet && (!f.lightOK || f.sentLight != f.light) {
		if err := f.send(wire.EncodeBacklight(f.light)); err != nil {
			debug.Log("feedback", "backlight write failed: %v", err)
			f.lightOK = false
			ferr.Backlight = true
		} else {
			f.sentLight = f.light
			f.lightOK = true
		}
	}

	if len(ferr.Leds) > 0 || ferr.Display || ferr.Backlight {
		return &ferr
	}
	return nil
}

// flushLed writes one LED. Off is written once per base color: the mode
// register acts per color element, and yellow lights both, so a single
// off would leave the other element burning.
func (f *Feedback) flushLed(led int) error {
	d := f.desired[led]
	cmds := []wire.LedCommand{{Led: led, Color: d.color, Mode: d.mode}}
	if d.mode == wire.Off {
		cmds = []wire.LedCommand{
			{Led: led, Color: wire.Green, Mode: wire.Off},
			{Led: led, Color: wire.Red, Mode: wire.Off},
		}
	}
	for _, cmd := range cmds {
		msg, err := wire.EncodeLed(cmd)
		if err != nil {
			return err
		}
		if err := f.send(msg); err != nil {
			return err
		}
		atomic.AddUint64(&ledSendCount, 1)
	}
	return nil
}

// ledPalette is what the hardware can actually show, in RGB.
var ledPalette = []struct {
	color wire.Color
	c     colorful.Color
}{
	{wire.Green, colorful.Color{R: 0, G: 1, B: 0}},
	{wire.Red, colorful.Color{R: 1, G: 0, B: 0}},
	{wire.Yellow, colorful.Color{R: 1, G: 1, B: 0}},
}

// nearestLed maps RGB onto the palette. Below a luminance floor the
// answer is "off" regardless of hue.
func nearestLed(r, g, b uint8) (wire.Color, wire.LedMode) {
	in := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	if _, _, l := in.Hsl(); l < 0.1 {
		return wire.Green, wire.Off
	}

	best := ledPalette[0].color
	bestDist := in.DistanceLab(ledPalette[0].c)
	for _, p := range ledPalette[1:] {
		if d := in.DistanceLab(p.c); d < bestDist {
			bestDist = d
			best = p.color
		}
	}
	return best, wire.On
}

// LedSendCount reports the LED writes since process start.
func LedSendCount() uint64 {
	return atomic.LoadUint64(&ledSendCount)
}
