package engine

import (
	"errors"
	"sync"
)

// ErrInvalidCalibration rejects a calibration that cannot map anything
// sensibly. The pad's previous calibration stays in force.
var ErrInvalidCalibration = errors.New("invalid calibration")

// rawScale converts the device's 7-bit samples to the unit range.
const rawScale = 1.0 / 127

// padCal is one pad's zero offset and gain. Baselines are per sensor;
// the gain is shared so corner arithmetic stays proportional.
type padCal struct {
	baseline [4]float64
	scale    float64
}

// Calibrator maps raw sensor bytes onto normalized pressure. Reads are
// taken on every sample by the engine loop, so they go through a read
// lock; writes come from consumer calls and are rare.
type Calibrator struct {
	mu   sync.RWMutex
	pads []padCal
}

func newCalibrator(padCount int) *Calibrator {
	c := &Calibrator{pads: make([]padCal, padCount)}
	for i := range c.pads {
		c.pads[i].scale = 1
	}
	return c
}

// normalize converts one sensor reading: inverted pads flip first, then
// the baseline comes off, the gain applies, and the result clamps to
// the unit range.
func (c *Calibrator) normalize(pad, sensor int, rawValue uint8, invert bool) float64 {
	v := float64(rawValue) * rawScale
	if invert {
		v = 1 - v
	}

	c.mu.RLock()
	cal := c.pads[pad]
	c.mu.RUnlock()

	return clamp01((v - cal.baseline[sensor]) * cal.scale)
}

// setBaseline snapshots the given raw unit values as the pad's zero.
func (c *Calibrator) setBaseline(pad int, snapshot [4]float64) {
	c.mu.Lock()
	c.pads[pad].baseline = snapshot
	c.mu.Unlock()
}

// setScale applies a gain. Anything not strictly positive is rejected
// and the previous gain survives.
func (c *Calibrator) setScale(pad int, scale float64) error {
	if !(scale > 0) {
		return ErrInvalidCalibration
	}
	c.mu.Lock()
	c.pads[pad].scale = scale
	c.mu.Unlock()
	return nil
}

// setRange maps an observed working range onto the full unit range:
// lo becomes zero, hi becomes one. Typical for pedals, whose mechanical
// travel rarely reaches either electrical extreme.
func (c *Calibrator) setRange(pad int, lo, hi float64) error {
	if !(hi > lo) {
		return ErrInvalidCalibration
	}
	c.mu.Lock()
	c.pads[pad].baseline = [4]float64{lo, lo, lo, lo}
	c.pads[pad].scale = 1 / (hi - lo)
	c.mu.Unlock()
	return nil
}

// snapshot returns the pad's current calibration.
func (c *Calibrator) snapshot(pad int) padCal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pads[pad]
}
