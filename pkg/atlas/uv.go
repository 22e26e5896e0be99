package atlas

import "github.com/Faultbox/meshatlas/pkg/math"

// UV maps a mesh-space position to normalized atlas coordinates on the
// first frame of r. See FrameUV.
func (a *Atlas) UV(r Rect, pos math.Vec2) math.Vec2 {
	return a.FrameUV(r, 0, pos)
}

// FrameUV maps a mesh-space position to normalized atlas coordinates on
// the given frame. Positions are clamped to the mesh bounds and land on
// texel centers of the content area, so the result never leaves the rect.
// A zero-width bounds axis maps to the middle of the content.
func (a *Atlas) FrameUV(r Rect, frame int, pos math.Vec2) math.Vec2 {
	b := r.MeshBounds
	size := b.Size()

	tx, ty := float32(0.5), float32(0.5)
	if size.X > 0 {
		tx = clamp01((pos.X - b.Min.X) / size.X)
	}
	if size.Y > 0 {
		ty = clamp01((pos.Y - b.Min.Y) / size.Y)
	}

	originX := r.X + frame*r.FrameWidth()
	px := float32(originX+r.PixelMin.X) + 0.5 + tx*float32(r.PixelMax.X-r.PixelMin.X)
	py := float32(r.Y+r.PixelMin.Y) + 0.5 + ty*float32(r.PixelMax.Y-r.PixelMin.Y)

	w, h := a.Size()
	return math.Vec2{X: px / float32(w), Y: py / float32(h)}
}

// QuadUV returns the UV box covering the mesh bounds on the given frame.
func (a *Atlas) QuadUV(r Rect, frame int) (uvMin, uvMax math.Vec2) {
	return a.FrameUV(r, frame, r.MeshBounds.Min), a.FrameUV(r, frame, r.MeshBounds.Max)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
