// Package math provides the small vector, bounds and matrix types used by
// the atlas engine and its preview.
package math

// Vec2 is a point or offset in mesh, atlas or screen space.
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale multiplies both components by s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Min returns the component-wise minimum.
func (v Vec2) Min(o Vec2) Vec2 { return Vec2{min(v.X, o.X), min(v.Y, o.Y)} }

// Max returns the component-wise maximum.
func (v Vec2) Max(o Vec2) Vec2 { return Vec2{max(v.X, o.X), max(v.Y, o.Y)} }

// Clamp limits each component to the box spanned by lo and hi.
func (v Vec2) Clamp(lo, hi Vec2) Vec2 { return v.Max(lo).Min(hi) }

// Cross returns the z component of the 3D cross product. Summed over the
// edges of a closed polygon it gives twice the signed area.
func (v Vec2) Cross(o Vec2) float32 { return v.X*o.Y - o.X*v.Y }
