package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"softstep/wire"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Pad grid states
	PadIdle    rune // · resting
	PadPressed rune // ● under the foot
	PadHeld    rune // ◉ long press

	// LED strip states
	LedOff   rune // □ dark
	LedOn    rune // ■ lit
	LedBlink rune // ▣ any blinking mode

	// Pressure meter ramp, blank to full
	Meter []rune
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			PadIdle:    '·',
			PadPressed: '●',
			PadHeld:    '◉',

			LedOff:   '□',
			LedOn:    '■',
			LedBlink: '▣',

			Meter: []rune(" ▁▂▃▄▅▆▇█"),
		},
	}
}

// Color roles mapped to ramp positions (0-1)
const (
	RoleBG      = 0.0  // resting slate
	RoleSurface = 0.05 // barely off the floor
	RoleMuted   = 0.12 // dim blue
	RoleAccent  = 0.33 // teal
	RoleFG      = 0.5  // readable green
	RoleSuccess = 0.5  // same green
	RoleActive  = 0.66 // yellow
	RoleWarning = 0.82 // orange
	RoleAlert   = 1.0  // full red
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

func (t *Theme) Alert() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAlert))
}

// Color returns a lipgloss color for any normalized value 0-1. Pressure
// meters feed straight through here.
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// RGB returns raw RGB for any normalized value (for LED mirroring)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// LedRGB maps a device LED state to display colors: the same green,
// red and yellow the hardware shows.
func (t *Theme) LedRGB(color wire.Color, mode wire.LedMode) RGB {
	if mode == wire.Off {
		return t.Palette.Lookup(RoleSurface)
	}
	switch color {
	case wire.Red:
		return RGB{235, 64, 52}
	case wire.Yellow:
		return RGB{232, 210, 70}
	default:
		return RGB{120, 200, 84}
	}
}

// LedGlyph picks the strip glyph for a device LED state.
func (t *Theme) LedGlyph(mode wire.LedMode) rune {
	switch mode {
	case wire.Off:
		return t.Symbols.LedOff
	case wire.On:
		return t.Symbols.LedOn
	default:
		return t.Symbols.LedBlink
	}
}

// PhaseGlyph picks the grid glyph for a gesture phase, by name so the
// caller does not need the engine types.
func (t *Theme) PhaseGlyph(held, pressed bool) rune {
	switch {
	case held:
		return t.Symbols.PadHeld
	case pressed:
		return t.Symbols.PadPressed
	default:
		return t.Symbols.PadIdle
	}
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
