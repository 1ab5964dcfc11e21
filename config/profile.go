package config

import (
	"fmt"
	"time"
)

// Model identifies the hardware generation
type Model string

const (
	ModelSoftStep1 Model = "softstep-1"
	ModelSoftStep2 Model = "softstep-2"
)

// PadKind tells what sits behind a pad index.
type PadKind int

const (
	PadMain  PadKind = iota // pressure pad, four sensors, own LED
	PadNav                  // nav cluster arrow, single sensor
	PadPedal                // expression pedal jack, single inverted sensor
)

// CornerLayout is how a main pad's four sensors are arranged. The first
// generation reads diagonal corners, the second reads edge midpoints, and
// direction pressures are derived differently for each.
type CornerLayout int

const (
	CornersDiagonal CornerLayout = iota // top-left, top-right, bottom-left, bottom-right
	CornersEdge                         // top, right, left, bottom
)

// PadSpec describes one pad of a profile.
type PadSpec struct {
	Label   string
	Kind    PadKind
	BaseCC  uint8 // first sensor controller, corners at offsets 0..3
	Sensors int
	Led     int // LED index for feedback, -1 when the pad has none
	Row     int // grid position for main pads, -1 otherwise
	Col     int
	Invert  bool // raw values run backwards
}

// Thresholds are the gesture tuning knobs, in normalized pressure units.
// Off must sit below On; the gap is the release hysteresis.
type Thresholds struct {
	On        float64
	Off       float64
	Hold      float64
	HoldAfter time.Duration
	MinDelta  float64
}

// Profile is a hardware model described as data: pad geometry, sensor
// wiring and default tuning. Firmware variants differ only here.
type Profile struct {
	Model      Model
	Name       string
	Corners    CornerLayout
	Pads       []PadSpec
	Thresholds Thresholds
	Curve      int // expression response, higher = finer control at low speed
}

// devicePads lays out the shared pad set: ten main pads in label order
// 1..9 then 0, the four nav arrows, and the pedal jack. The controller
// numbers interleave the two physical rows, so they are listed rather
// than computed.
func devicePads() []PadSpec {
	labels := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0"}
	baseCC := []uint8{44, 52, 60, 68, 76, 40, 48, 56, 64, 72}

	pads := make([]PadSpec, 0, 15)
	for i := range labels {
		row := 1 // bottom row holds 1-5
		if i >= 5 {
			row = 0
		}
		pads = append(pads, PadSpec{
			Label:   labels[i],
			Kind:    PadMain,
			BaseCC:  baseCC[i],
			Sensors: 4,
			Led:     i,
			Row:     row,
			Col:     i % 5,
		})
	}
	for i, nav := range []string{"nav-left", "nav-right", "nav-up", "nav-down"} {
		pads = append(pads, PadSpec{
			Label:   nav,
			Kind:    PadNav,
			BaseCC:  80 + uint8(i),
			Sensors: 1,
			Led:     -1,
			Row:     -1,
			Col:     -1,
		})
	}
	pads = append(pads, PadSpec{
		Label:   "pedal",
		Kind:    PadPedal,
		BaseCC:  86,
		Sensors: 1,
		Led:     -1,
		Row:     -1,
		Col:     -1,
		Invert:  true,
	})
	return pads
}

// SoftStep1 returns the first-generation profile. Its sensors need a
// firm press before they read anything useful.
func SoftStep1() Profile {
	return Profile{
		Model:   ModelSoftStep1,
		Name:    "SoftStep",
		Corners: CornersDiagonal,
		Pads:    devicePads(),
		Thresholds: Thresholds{
			On:        0.03,
			Off:       0.02,
			Hold:      0.02,
			HoldAfter: 500 * time.Millisecond,
			MinDelta:  1.0 / 127,
		},
		Curve: 2,
	}
}

// SoftStep2 returns the second-generation profile. Far more sensitive
// sensors, so the thresholds sit an order of magnitude higher.
func SoftStep2() Profile {
	return Profile{
		Model:   ModelSoftStep2,
		Name:    "SoftStep 2",
		Corners: CornersEdge,
		Pads:    devicePads(),
		Thresholds: Thresholds{
			On:        0.30,
			Off:       0.22,
			Hold:      0.22,
			HoldAfter: 500 * time.Millisecond,
			MinDelta:  1.0 / 127,
		},
		Curve: 20,
	}
}

// ProfileFor resolves a model name from config.
func ProfileFor(m Model) (Profile, error) {
	switch m {
	case ModelSoftStep1:
		return SoftStep1(), nil
	case ModelSoftStep2:
		return SoftStep2(), nil
	}
	return Profile{}, fmt.Errorf("unknown model %q", m)
}

// PadByLabel finds a pad index by its printed label.
func (p Profile) PadByLabel(label string) (int, bool) {
	for i := range p.Pads {
		if p.Pads[i].Label == label {
			return i, true
		}
	}
	return 0, false
}

// MainPads returns the indices of the pressure pads, in label order.
func (p Profile) MainPads() []int {
	var out []int
	for i := range p.Pads {
		if p.Pads[i].Kind == PadMain {
			out = append(out, i)
		}
	}
	return out
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
