package config

import (
	"testing"
	"time"
)

func TestProfileControllerMap(t *testing.T) {
	// The device's controller numbers, by printed label.
	wantCC := map[string]uint8{
		"1": 44, "2": 52, "3": 60, "4": 68, "5": 76,
		"6": 40, "7": 48, "8": 56, "9": 64, "0": 72,
		"nav-left": 80, "nav-right": 81, "nav-up": 82, "nav-down": 83,
		"pedal": 86,
	}

	for _, p := range []Profile{SoftStep1(), SoftStep2()} {
		if len(p.Pads) != len(wantCC) {
			t.Errorf("%s: %d pads, want %d", p.Model, len(p.Pads), len(wantCC))
		}
		for _, pad := range p.Pads {
			cc, ok := wantCC[pad.Label]
			if !ok {
				t.Errorf("%s: unexpected pad %q", p.Model, pad.Label)
				continue
			}
			if pad.BaseCC != cc {
				t.Errorf("%s: pad %q base controller %d, want %d", p.Model, pad.Label, pad.BaseCC, cc)
			}
		}
	}
}

func TestProfileSensorsDoNotCollide(t *testing.T) {
	p := SoftStep1()
	seen := make(map[uint8]string)
	for _, pad := range p.Pads {
		for s := 0; s < pad.Sensors; s++ {
			cc := pad.BaseCC + uint8(s)
			if prev, dup := seen[cc]; dup {
				t.Errorf("controller %d claimed by both %q and %q", cc, prev, pad.Label)
			}
			seen[cc] = pad.Label
		}
	}
}

func TestProfileLeds(t *testing.T) {
	p := SoftStep2()
	seen := make(map[int]bool)
	for _, pad := range p.Pads {
		switch pad.Kind {
		case PadMain:
			if pad.Led < 0 || pad.Led > 9 {
				t.Errorf("pad %q led %d out of range", pad.Label, pad.Led)
			}
			if seen[pad.Led] {
				t.Errorf("led %d assigned twice", pad.Led)
			}
			seen[pad.Led] = true
		default:
			if pad.Led != -1 {
				t.Errorf("pad %q should have no led, got %d", pad.Label, pad.Led)
			}
		}
	}
	if len(seen) != 10 {
		t.Errorf("%d leds assigned, want 10", len(seen))
	}
}

func TestProfileFor(t *testing.T) {
	if _, err := ProfileFor(ModelSoftStep2); err != nil {
		t.Errorf("known model rejected: %v", err)
	}
	if _, err := ProfileFor("softstep-9"); err == nil {
		t.Error("unknown model accepted")
	}
}

func TestPadByLabel(t *testing.T) {
	p := SoftStep1()
	i, ok := p.PadByLabel("7")
	if !ok {
		t.Fatal("pad 7 not found")
	}
	if p.Pads[i].BaseCC != 48 {
		t.Errorf("pad 7 base controller %d, want 48", p.Pads[i].BaseCC)
	}
	if _, ok := p.PadByLabel("x"); ok {
		t.Error("bogus label found")
	}
}

func TestThresholdMerge(t *testing.T) {
	base := SoftStep1().Thresholds

	merged := ThresholdConfig{}.Merge(base)
	if merged != base {
		t.Errorf("empty override changed defaults: %+v", merged)
	}

	merged = ThresholdConfig{On: 0.5, HoldAfterMS: 250}.Merge(base)
	if merged.On != 0.5 {
		t.Errorf("on = %v, want 0.5", merged.On)
	}
	if merged.HoldAfter != 250*time.Millisecond {
		t.Errorf("holdAfter = %v, want 250ms", merged.HoldAfter)
	}
	if merged.Off != base.Off || merged.MinDelta != base.MinDelta {
		t.Error("untouched fields changed")
	}
}
