package math

// Bounds2 is an axis-aligned 2D box.
type Bounds2 struct {
	Min, Max Vec2
}

// BoundsFromPoints returns the smallest box containing all points.
// An empty slice yields the zero box.
func BoundsFromPoints(points []Vec2) Bounds2 {
	if len(points) == 0 {
		return Bounds2{}
	}
	b := Bounds2{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b
}

// Size returns the width and height of the box.
func (b Bounds2) Size() Vec2 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds2) Center() Vec2 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extend returns the box grown to include p.
func (b Bounds2) Extend(p Vec2) Bounds2 {
	return Bounds2{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b Bounds2) Union(other Bounds2) Bounds2 {
	return Bounds2{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// IsEmpty reports whether the box has no area.
func (b Bounds2) IsEmpty() bool {
	s := b.Size()
	return s.X <= 0 || s.Y <= 0
}
