package theme

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// Pressure is the built-in ramp for foot pressure: cold at rest, hot
// under full weight.
func Pressure() *Palette {
	return &Palette{
		Name: "pressure",
		Colors: []RGB{
			{40, 44, 62},   // resting slate
			{52, 110, 168}, // light touch
			{64, 178, 170}, // teal
			{120, 200, 84}, // solid press
			{232, 210, 70}, // leaning in
			{240, 142, 48}, // heavy
			{235, 64, 52},  // full weight
		},
	}
}

// LoadGPL reads a GIMP palette file, for people who want the meters in
// their own colors.
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := &Palette{}
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "Name:") {
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		// Skip headers and comments
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
			continue
		}

		// Parse RGB values (first 3 fields are R G B)
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			r, err1 := strconv.Atoi(fields[0])
			g, err2 := strconv.Atoi(fields[1])
			b, err3 := strconv.Atoi(fields[2])
			if err1 == nil && err2 == nil && err3 == nil {
				p.Colors = append(p.Colors, RGB{uint8(r), uint8(g), uint8(b)})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found in palette %s", path)
	}

	return p, nil
}

func MustLoadGPL(path string) *Palette {
	p, err := LoadGPL(path)
	if err != nil {
		panic(fmt.Sprintf("failed to load palette %s: %v", path, err))
	}
	return p
}

// Lookup returns the ramp color for a normalized value 0-1. Neighbors
// blend in Luv space, which keeps the midpoints from going muddy the
// way naive RGB interpolation does.
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := toColorful(p.Colors[i])
	c1 := toColorful(p.Colors[i+1])
	return fromColorful(c0.BlendLuv(c1, frac))
}

// Index returns the color at a specific index, without interpolation.
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{
		R: float64(c[0]) / 255,
		G: float64(c[1]) / 255,
		B: float64(c[2]) / 255,
	}
}

func fromColorful(c colorful.Color) RGB {
	c = c.Clamped()
	r, g, b := c.RGB255()
	return RGB{r, g, b}
}
