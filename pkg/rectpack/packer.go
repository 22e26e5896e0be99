// Package rectpack places rectangles on a fixed-size surface and reclaims
// them on removal.
//
// The packer keeps a MaxRects free list: every maximal empty rectangle of
// the surface. Placement uses the bottom-left rule: the candidate with the
// smallest bottom edge wins, ties go to the smallest X, then to the earliest
// free-list entry. The free list is rebuilt in placement order whenever a
// rect is removed, so a given sequence of Insert/Remove calls always
// produces the same layout.
package rectpack

import (
	"errors"
	"fmt"
	"math"
)

// Packer errors.
var (
	ErrNoSpace     = errors.New("rectpack: no free region large enough")
	ErrInvalidSize = errors.New("rectpack: invalid rect size")
	ErrNotPlaced   = errors.New("rectpack: rect is not placed")
	ErrOverlap     = errors.New("rectpack: rect overlaps a placed rect")
	ErrOutOfBounds = errors.New("rectpack: rect lies outside the surface")
)

// Packer allocates rectangles on a width x height surface.
type Packer struct {
	width  int
	height int
	used   []Rect // placement order
	free   []Rect
}

// New creates a packer with a single free region covering the surface.
func New(width, height int) *Packer {
	p := &Packer{}
	p.Resize(width, height)
	return p
}

// Resize changes the surface size and drops every placement.
func (p *Packer) Resize(width, height int) {
	p.width = width
	p.height = height
	p.Clear()
}

// Clear resets the packer to a single free region spanning the surface.
func (p *Packer) Clear() {
	p.used = p.used[:0]
	p.free = p.free[:0]
	if p.width > 0 && p.height > 0 {
		p.free = append(p.free, Rect{W: p.width, H: p.height})
	}
}

// Size returns the surface dimensions.
func (p *Packer) Size() (width, height int) {
	return p.width, p.height
}

// Insert places a width x height rect and returns its position.
// The surface never grows; ErrNoSpace is returned when nothing fits.
func (p *Packer) Insert(width, height int) (Rect, error) {
	if width <= 0 || height <= 0 {
		return Rect{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	r, ok := p.findBottomLeft(width, height)
	if !ok {
		return Rect{}, fmt.Errorf("%w: %dx%d on %dx%d surface", ErrNoSpace, width, height, p.width, p.height)
	}

	p.splitFree(r)
	p.used = append(p.used, r)
	return r, nil
}

// CanFit reports whether Insert(width, height) would succeed.
func (p *Packer) CanFit(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	_, ok := p.findBottomLeft(width, height)
	return ok
}

// Remove returns a placed rect to the free pool. The rect must match a
// current placement exactly.
func (p *Packer) Remove(r Rect) error {
	idx := -1
	for i, u := range p.used {
		if u == r {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotPlaced, r)
	}

	p.used = append(p.used[:idx], p.used[idx+1:]...)
	p.rebuildFree()
	return nil
}

// MarkUsed reserves an exact region, as when restoring a saved layout.
func (p *Packer) MarkUsed(r Rect) error {
	if r.Empty() {
		return fmt.Errorf("%w: %s", ErrInvalidSize, r)
	}
	if r.X < 0 || r.Y < 0 || r.Right() > p.width || r.Bottom() > p.height {
		return fmt.Errorf("%w: %s on %dx%d surface", ErrOutOfBounds, r, p.width, p.height)
	}
	for _, u := range p.used {
		if u.Intersects(r) {
			return fmt.Errorf("%w: %s intersects %s", ErrOverlap, r, u)
		}
	}

	p.splitFree(r)
	p.used = append(p.used, r)
	return nil
}

// Occupancy returns the ratio of used area to surface area.
func (p *Packer) Occupancy() float64 {
	if p.width <= 0 || p.height <= 0 {
		return 0
	}
	area := 0
	for _, u := range p.used {
		area += u.Area()
	}
	return float64(area) / float64(p.width*p.height)
}

// Used returns a copy of the placed rects in placement order.
func (p *Packer) Used() []Rect {
	return append([]Rect(nil), p.used...)
}

// FreeRects returns a copy of the current free list.
func (p *Packer) FreeRects() []Rect {
	return append([]Rect(nil), p.free...)
}

// Validate checks the placements against each other and the free list.
// It returns ErrOutOfBounds or ErrOverlap on the first violation.
func (p *Packer) Validate() error {
	for i, u := range p.used {
		if u.X < 0 || u.Y < 0 || u.Right() > p.width || u.Bottom() > p.height {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, u)
		}
		for _, o := range p.used[i+1:] {
			if u.Intersects(o) {
				return fmt.Errorf("%w: %s intersects %s", ErrOverlap, u, o)
			}
		}
		for _, f := range p.free {
			if u.Intersects(f) {
				return fmt.Errorf("%w: free %s intersects %s", ErrOverlap, f, u)
			}
		}
	}
	return nil
}

// findBottomLeft picks the free rect giving the lowest bottom edge, then
// the lowest X.
func (p *Packer) findBottomLeft(width, height int) (Rect, bool) {
	var best Rect
	bestBottom := math.MaxInt
	bestX := math.MaxInt
	found := false

	for _, f := range p.free {
		if f.W < width || f.H < height {
			continue
		}
		bottom := f.Y + height
		if bottom < bestBottom || (bottom == bestBottom && f.X < bestX) {
			best = Rect{X: f.X, Y: f.Y, W: width, H: height}
			bestBottom = bottom
			bestX = f.X
			found = true
		}
	}
	return best, found
}

// splitFree carves r out of every free rect it touches.
func (p *Packer) splitFree(r Rect) {
	next := make([]Rect, 0, len(p.free)+4)
	for _, f := range p.free {
		if !f.Intersects(r) {
			next = append(next, f)
			continue
		}
		next = appendSplits(next, f, r)
	}
	p.free = pruneContained(next)
}

// rebuildFree recomputes the free list from the placements alone.
func (p *Packer) rebuildFree() {
	p.free = p.free[:0]
	if p.width > 0 && p.height > 0 {
		p.free = append(p.free, Rect{W: p.width, H: p.height})
	}
	for _, u := range p.used {
		p.splitFree(u)
	}
}

// appendSplits appends the up-to-four maximal pieces of f left over once r
// is removed from it. r must intersect f.
func appendSplits(dst []Rect, f, r Rect) []Rect {
	if r.Y > f.Y {
		dst = append(dst, Rect{X: f.X, Y: f.Y, W: f.W, H: r.Y - f.Y})
	}
	if r.Bottom() < f.Bottom() {
		dst = append(dst, Rect{X: f.X, Y: r.Bottom(), W: f.W, H: f.Bottom() - r.Bottom()})
	}
	if r.X > f.X {
		dst = append(dst, Rect{X: f.X, Y: f.Y, W: r.X - f.X, H: f.H})
	}
	if r.Right() < f.Right() {
		dst = append(dst, Rect{X: r.Right(), Y: f.Y, W: f.Right() - r.Right(), H: f.H})
	}
	return dst
}

// pruneContained drops rects that lie inside another rect. Of two equal
// rects the earlier one is kept.
func pruneContained(rects []Rect) []Rect {
	removed := make([]bool, len(rects))
	for i := range rects {
		if removed[i] {
			continue
		}
		for j := range rects {
			if i == j || removed[j] || !rects[j].Contains(rects[i]) {
				continue
			}
			if rects[i] == rects[j] && i < j {
				removed[j] = true
				continue
			}
			removed[i] = true
			break
		}
	}

	out := rects[:0]
	for i, r := range rects {
		if !removed[i] {
			out = append(out, r)
		}
	}
	return out
}
