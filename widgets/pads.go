package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PadView is one pad's render state.
type PadView struct {
	Label    string
	Pressure float64
	Glyph    rune
	Color    [3]uint8
}

// LedView is one LED's render state.
type LedView struct {
	Glyph rune
	Color [3]uint8
}

// RenderMeterBar renders pressure as a fixed-width bar built from ramp
// runes (blank first, full last). The last cell shows the fractional
// remainder, so small pressure changes still move something.
func RenderMeterBar(ramp []rune, p float64, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	cells := p * float64(width)
	full := int(cells)

	var out strings.Builder
	for i := 0; i < full; i++ {
		out.WriteRune(ramp[len(ramp)-1])
	}
	if full < width {
		frac := cells - float64(full)
		out.WriteRune(ramp[int(frac*float64(len(ramp)-1))])
		for i := full + 1; i < width; i++ {
			out.WriteRune(ramp[0])
		}
	}
	return out.String()
}

// RenderPadCell renders one pad: label, phase glyph, small meter.
func RenderPadCell(v PadView, ramp []rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(v.Color)))
	meter := RenderMeterBar(ramp, v.Pressure, 3)
	return style.Render(fmt.Sprintf("%2s %c%s", v.Label, v.Glyph, meter))
}

// RenderPadRow renders a row of pads with spacing
func RenderPadRow(views []PadView, ramp []rune) string {
	var out strings.Builder
	for i, v := range views {
		if i > 0 {
			out.WriteString("  ")
		}
		out.WriteString(RenderPadCell(v, ramp))
	}
	return out.String()
}

// RenderPadGrid renders the pad surface, one row per line.
func RenderPadGrid(rows [][]PadView, ramp []rune) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, RenderPadRow(row, ramp))
	}
	return strings.Join(lines, "\n")
}

// RenderLedStrip renders the LED mirror as a run of colored glyphs.
func RenderLedStrip(leds []LedView) string {
	var out strings.Builder
	for i, led := range leds {
		if i > 0 {
			out.WriteString(" ")
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(led.Color)))
		out.WriteString(style.Render(string(led.Glyph)))
	}
	return out.String()
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, glyph rune, name, desc string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return fmt.Sprintf("  %s %s - %s", style.Render(string(glyph)), name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
