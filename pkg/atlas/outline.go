package atlas

import "github.com/Faultbox/meshatlas/pkg/math"

// Outline returns four edge boxes per valid rect, in atlas pixel space,
// for drawing rect borders in a preview.
func (a *Atlas) Outline(thickness float32) []math.Bounds2 {
	live := a.tbl.live()
	out := make([]math.Bounds2, 0, len(live)*4)
	for _, r := range live {
		x0, y0 := float32(r.X), float32(r.Y)
		x1, y1 := float32(r.X+r.Width), float32(r.Y+r.Height)
		out = append(out,
			math.Bounds2{Min: math.Vec2{X: x0, Y: y0}, Max: math.Vec2{X: x1, Y: y0 + thickness}},
			math.Bounds2{Min: math.Vec2{X: x0, Y: y1 - thickness}, Max: math.Vec2{X: x1, Y: y1}},
			math.Bounds2{Min: math.Vec2{X: x0, Y: y0}, Max: math.Vec2{X: x0 + thickness, Y: y1}},
			math.Bounds2{Min: math.Vec2{X: x1 - thickness, Y: y0}, Max: math.Vec2{X: x1, Y: y1}},
		)
	}
	return out
}
