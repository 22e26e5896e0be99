package canvas

import (
	"image/color"

	"github.com/Faultbox/meshatlas/pkg/mesh"
)

// Color represents an RGBA color with float components (0.0 to 1.0).
type Color struct {
	R, G, B, A float32
}

// Preview colors.
var (
	ColorWhite   = Color{1, 1, 1, 1}
	ColorOutline = Color{0.2, 0.6, 0.9, 0.8}
	ColorHover   = Color{1, 0.8, 0.2, 1}
	ColorChecker = Color{1, 1, 1, 0.06}
)

// FromNRGBA converts an 8-bit color.
func FromNRGBA(c color.NRGBA) Color {
	return Color{
		R: float32(c.R) / 255.0,
		G: float32(c.G) / 255.0,
		B: float32(c.B) / 255.0,
		A: float32(c.A) / 255.0,
	}
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (Color, error) {
	c, err := mesh.ParseColor(s)
	if err != nil {
		return Color{}, err
	}
	return FromNRGBA(c), nil
}

// Premultiplied returns the color with RGB scaled by alpha, matching the
// atlas pixel format.
func (c Color) Premultiplied() Color {
	return Color{c.R * c.A, c.G * c.A, c.B * c.A, c.A}
}
