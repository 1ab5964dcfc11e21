package engine

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizeDefaults(t *testing.T) {
	c := newCalibrator(2)

	cases := []struct {
		raw    uint8
		invert bool
		want   float64
	}{
		{0, false, 0},
		{127, false, 1},
		{0, true, 1},
		{127, true, 0},
	}
	for _, tc := range cases {
		got := c.normalize(0, 0, tc.raw, tc.invert)
		if !near(got, tc.want) {
			t.Errorf("normalize(raw=%d, invert=%v) = %v, want %v", tc.raw, tc.invert, got, tc.want)
		}
	}
}

func TestNormalizeBaseline(t *testing.T) {
	c := newCalibrator(1)
	c.setBaseline(0, [4]float64{0.1, 0, 0, 0})

	if got := c.normalize(0, 0, 127, false); !near(got, 0.9) {
		t.Errorf("full press over baseline = %v, want 0.9", got)
	}
	// 12/127 is under the baseline, so it clamps to zero
	if got := c.normalize(0, 0, 12, false); got != 0 {
		t.Errorf("reading under baseline = %v, want 0", got)
	}
	// sensor 1 has no baseline and is unaffected
	if got := c.normalize(0, 1, 127, false); !near(got, 1) {
		t.Errorf("untouched sensor = %v, want 1", got)
	}
}

func TestSetScale(t *testing.T) {
	c := newCalibrator(1)
	if err := c.setScale(0, 2); err != nil {
		t.Fatalf("setScale(2): %v", err)
	}
	want := float64(32) / 127 * 2
	if got := c.normalize(0, 0, 32, false); !near(got, want) {
		t.Errorf("scaled reading = %v, want %v", got, want)
	}
	if got := c.normalize(0, 0, 127, false); got != 1 {
		t.Errorf("overdriven reading = %v, want clamped 1", got)
	}
}

func TestSetScaleRejectsInvalid(t *testing.T) {
	c := newCalibrator(1)
	if err := c.setScale(0, 2); err != nil {
		t.Fatalf("setScale(2): %v", err)
	}

	for _, bad := range []float64{0, -1, math.NaN()} {
		if err := c.setScale(0, bad); err == nil {
			t.Errorf("setScale(%v) accepted", bad)
		}
	}
	// the last good scale survives the rejections
	want := float64(32) / 127 * 2
	if got := c.normalize(0, 0, 32, false); !near(got, want) {
		t.Errorf("scale after rejections = %v, want %v", got, want)
	}
}

func TestSetRange(t *testing.T) {
	c := newCalibrator(1)
	if err := c.setRange(0, 0.3, 0.8); err != nil {
		t.Fatalf("setRange: %v", err)
	}

	if got := c.normalize(0, 0, 38, false); got != 0 { // 0.299 sits under lo
		t.Errorf("below range = %v, want 0", got)
	}
	if got := c.normalize(0, 0, 102, false); got != 1 { // 0.803 sits over hi
		t.Errorf("above range = %v, want 1", got)
	}
	if got := c.normalize(0, 0, 70, false); got <= 0.45 || got >= 0.55 {
		t.Errorf("midpoint = %v, want near 0.5", got)
	}
}

func TestSetRangeRejectsInvalid(t *testing.T) {
	c := newCalibrator(1)
	cases := []struct {
		lo, hi float64
	}{
		{0.5, 0.5},
		{0.7, 0.3},
		{math.NaN(), 0.5},
		{0.2, math.NaN()},
	}
	for _, tc := range cases {
		if err := c.setRange(0, tc.lo, tc.hi); err == nil {
			t.Errorf("setRange(%v, %v) accepted", tc.lo, tc.hi)
		}
	}
	// defaults survive
	if got := c.normalize(0, 0, 127, false); !near(got, 1) {
		t.Errorf("normalize after rejections = %v, want 1", got)
	}
}
