package atlas

import (
	"errors"
	"fmt"
	gomath "math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/pkg/math"
	"github.com/Faultbox/meshatlas/pkg/rectpack"
)

// table is the slot array plus the packer that tracks its free space.
// Regeneration builds a fresh table and swaps it in on success.
type table struct {
	width, height int
	packer        *rectpack.Packer
	rects         [MaxRects]Rect
	count         int // high-water mark of used slots
	seq           uint64
}

func newTable(width, height int) *table {
	return &table{
		width:  width,
		height: height,
		packer: rectpack.New(width, height),
	}
}

func (t *table) find(name string) int {
	for i := 0; i < t.count; i++ {
		if t.rects[i].Valid && t.rects[i].Mesh == name {
			return i
		}
	}
	return -1
}

// freeSlot returns the lowest invalidated index, else the next unused one.
func (t *table) freeSlot() int {
	for i := 0; i < t.count; i++ {
		if !t.rects[i].Valid {
			return i
		}
	}
	if t.count < MaxRects {
		return t.count
	}
	return -1
}

func (t *table) claim(slot int, r Rect) Rect {
	r.Slot = slot
	r.Valid = true
	t.rects[slot] = r
	if slot >= t.count {
		t.count = slot + 1
	}
	return r
}

// insert places a new rect. The table is checked before the packer so a
// full table never touches the free list.
func (t *table) insert(name string, bounds math.Bounds2, frames, w, h int) (Rect, error) {
	if w > t.width || h > t.height {
		return Rect{}, fmt.Errorf("%w: %q needs %dx%d on %dx%d", ErrTooLarge, name, w, h, t.width, t.height)
	}
	slot := t.freeSlot()
	if slot < 0 {
		return Rect{}, fmt.Errorf("%w: %d slots in use, cannot add %q", ErrTableFull, MaxRects, name)
	}
	pr, err := t.packer.Insert(w, h)
	if err != nil {
		return Rect{}, fmt.Errorf("%w: %q: %v", ErrAtlasFull, name, err)
	}

	r := Rect{
		Seq:        t.seq,
		X:          pr.X,
		Y:          pr.Y,
		Width:      w,
		Height:     h,
		Mesh:       name,
		FrameCount: frames,
		MeshBounds: bounds,
	}
	t.seq++
	return t.claim(slot, r), nil
}

// repack moves an existing rect to a freshly packed region. On failure the
// old placement is restored and the table is unchanged.
func (t *table) repack(idx int, bounds math.Bounds2, frames, w, h int) (Rect, error) {
	old := t.rects[idx]
	if w > t.width || h > t.height {
		return Rect{}, fmt.Errorf("%w: %q needs %dx%d on %dx%d", ErrTooLarge, old.Mesh, w, h, t.width, t.height)
	}
	if err := t.packer.Remove(old.placement()); err != nil {
		return Rect{}, fmt.Errorf("%w: %v", ErrInconsistent, err)
	}

	pr, err := t.packer.Insert(w, h)
	if err != nil {
		if rerr := t.packer.MarkUsed(old.placement()); rerr != nil {
			return Rect{}, fmt.Errorf("%w: restoring %q: %v", ErrInconsistent, old.Mesh, rerr)
		}
		return Rect{}, fmt.Errorf("%w: repacking %q: %v", ErrAtlasFull, old.Mesh, err)
	}

	r := old
	r.X, r.Y, r.Width, r.Height = pr.X, pr.Y, w, h
	r.FrameCount = frames
	r.MeshBounds = bounds
	t.rects[idx] = r
	return r, nil
}

func (t *table) free(idx int) error {
	r := t.rects[idx]
	if err := t.packer.Remove(r.placement()); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistent, err)
	}
	t.rects[idx].Valid = false
	return nil
}

func (t *table) clear() {
	for i := 0; i < t.count; i++ {
		t.rects[i].Valid = false
	}
	t.count = 0
	t.packer.Clear()
}

// restore places a saved rect at its recorded position.
func (t *table) restore(r Rect) (Rect, error) {
	if r.FrameCount < 1 || r.Width%r.FrameCount != 0 {
		return Rect{}, fmt.Errorf("%w: %q has %d frames over width %d", rectpack.ErrInvalidSize, r.Mesh, r.FrameCount, r.Width)
	}
	if t.find(r.Mesh) >= 0 {
		return Rect{}, fmt.Errorf("%w: %q", ErrDuplicate, r.Mesh)
	}
	slot := t.freeSlot()
	if slot < 0 {
		return Rect{}, fmt.Errorf("%w: restoring %q", ErrTableFull, r.Mesh)
	}
	if err := t.packer.MarkUsed(r.placement()); err != nil {
		return Rect{}, fmt.Errorf("restoring %q: %w", r.Mesh, err)
	}
	r.Seq = t.seq
	t.seq++
	return t.claim(slot, r), nil
}

// ordered returns the valid rects in allocation order.
func (t *table) ordered() []Rect {
	live := t.live()
	sort.Slice(live, func(i, j int) bool { return live[i].Seq < live[j].Seq })
	return live
}

// revert puts a rect back at an earlier placement of the same slot.
func (t *table) revert(old Rect) error {
	cur := t.rects[old.Slot]
	if cur.placement() != old.placement() {
		if err := t.packer.Remove(cur.placement()); err != nil {
			return fmt.Errorf("%w: %v", ErrInconsistent, err)
		}
		if err := t.packer.MarkUsed(old.placement()); err != nil {
			return fmt.Errorf("%w: restoring %q: %v", ErrInconsistent, old.Mesh, err)
		}
	}
	t.rects[old.Slot] = old
	return nil
}

func (t *table) live() []Rect {
	out := make([]Rect, 0, t.count)
	for i := 0; i < t.count; i++ {
		if t.rects[i].Valid {
			out = append(out, t.rects[i])
		}
	}
	return out
}

// footprint returns the pixel size of one frame for the given mesh bounds.
func (a *Atlas) footprint(bounds math.Bounds2) (w, h int) {
	size := bounds.Size()
	w = max(int(gomath.Ceil(float64(size.X*a.opts.DPI))), 1) + 2*a.opts.Padding
	h = max(int(gomath.Ceil(float64(size.Y*a.opts.DPI))), 1) + 2*a.opts.Padding
	return w, h
}

// reusable reports whether a rect of the wanted size can stay in old's slot.
func (a *Atlas) reusable(old Rect, frames, w, h int) bool {
	if old.FrameCount != frames {
		return false
	}
	if w > old.Width || h > old.Height {
		return false
	}
	return old.Width-w <= a.opts.RepackThreshold*frames && old.Height-h <= a.opts.RepackThreshold
}

// AllocateRect returns the rect for a mesh, creating or repacking it as
// needed. An existing slot is reused when the new footprint still fits it
// within RepackThreshold; otherwise the mesh is repacked. A failed repack
// leaves the old placement in place.
func (a *Atlas) AllocateRect(name string, bounds math.Bounds2, frames int) (Rect, error) {
	a.checkOpen()
	if frames < 1 {
		frames = 1
	}
	fw, fh := a.footprint(bounds)
	w, h := fw*frames, fh

	if idx := a.tbl.find(name); idx >= 0 {
		old := a.tbl.rects[idx]
		if a.reusable(old, frames, w, h) {
			a.tbl.rects[idx].MeshBounds = bounds
			a.dirty = true
			return a.tbl.rects[idx], nil
		}

		r, err := a.tbl.repack(idx, bounds, frames, w, h)
		if err != nil {
			return Rect{}, err
		}
		a.clearRegion(old)
		r = a.resetContent(r)
		a.dirty = true
		a.log.Debug("repacked rect",
			zap.String("mesh", name),
			zap.Stringer("from", old.placement()),
			zap.Stringer("to", r.placement()))
		return r, nil
	}

	r, err := a.tbl.insert(name, bounds, frames, w, h)
	if err != nil {
		return Rect{}, err
	}
	a.clearRegion(r)
	r = a.resetContent(r)
	a.dirty = true
	a.log.Debug("allocated rect",
		zap.String("mesh", name),
		zap.Int("slot", r.Slot),
		zap.Stringer("rect", r.placement()))
	return r, nil
}

// AllocateMesh allocates a rect sized for every frame of m.
func (a *Atlas) AllocateMesh(m Mesh) (Rect, error) {
	return a.AllocateRect(m.Name(), m.Bounds(), m.FrameCount())
}

// FindRectForMesh returns the valid rect owned by the named mesh.
func (a *Atlas) FindRectForMesh(name string) (Rect, bool) {
	idx := a.tbl.find(name)
	if idx < 0 {
		return Rect{}, false
	}
	return a.tbl.rects[idx], true
}

// FreeRect invalidates the mesh's slot and returns its region to the packer.
// The table is not compacted.
func (a *Atlas) FreeRect(name string) error {
	a.checkOpen()
	idx := a.tbl.find(name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrRectNotFound, name)
	}
	r := a.tbl.rects[idx]
	if err := a.tbl.free(idx); err != nil {
		return err
	}
	a.clearRegion(r)
	a.dirty = true
	a.log.Debug("freed rect", zap.String("mesh", name), zap.Int("slot", idx))
	return nil
}

// ClearAllRects invalidates every slot, resets the packer and clears the
// pixel buffer.
func (a *Atlas) ClearAllRects() {
	a.checkOpen()
	a.tbl.clear()
	clear(a.pixels)
	a.dirty = true
}

// Restore replaces the table with saved rects at their recorded positions.
// On error the atlas is unchanged.
func (a *Atlas) Restore(rects []Rect) error {
	a.checkOpen()
	t := newTable(a.tbl.width, a.tbl.height)
	for _, r := range rects {
		if _, err := t.restore(r); err != nil {
			return err
		}
	}
	a.tbl = t
	a.dirty = true
	return nil
}

// Rects returns the valid rects in slot order.
func (a *Atlas) Rects() []Rect {
	return a.tbl.live()
}

// RectCount returns the number of table slots in use, including
// invalidated ones below the high-water mark.
func (a *Atlas) RectCount() int { return a.tbl.count }

// Len returns the number of valid rects.
func (a *Atlas) Len() int {
	n := 0
	for i := 0; i < a.tbl.count; i++ {
		if a.tbl.rects[i].Valid {
			n++
		}
	}
	return n
}

// Validate checks that the packer's placements match the valid rects and
// that mesh names are unique. Divergence is reported as ErrInconsistent;
// recover with ClearAllRects and Regenerate.
func (a *Atlas) Validate() error {
	t := a.tbl
	if t.count > MaxRects {
		return fmt.Errorf("%w: %d slots in use", ErrInconsistent, t.count)
	}

	live := t.live()
	seen := make(map[string]bool, len(live))
	for _, r := range live {
		if seen[r.Mesh] {
			return fmt.Errorf("%w: %q owns two rects", ErrInconsistent, r.Mesh)
		}
		seen[r.Mesh] = true
	}

	used := t.packer.Used()
	if len(used) != len(live) {
		return fmt.Errorf("%w: %d placements for %d rects", ErrInconsistent, len(used), len(live))
	}
	want := make([]rectpack.Rect, len(live))
	for i, r := range live {
		want[i] = r.placement()
	}
	sortPlacements(want)
	sortPlacements(used)
	for i := range want {
		if want[i] != used[i] {
			return fmt.Errorf("%w: rect %s has no matching placement", ErrInconsistent, want[i])
		}
	}

	if err := t.packer.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistent, err)
	}
	return nil
}

func sortPlacements(rs []rectpack.Rect) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Y != rs[j].Y {
			return rs[i].Y < rs[j].Y
		}
		if rs[i].X != rs[j].X {
			return rs[i].X < rs[j].X
		}
		if rs[i].W != rs[j].W {
			return rs[i].W < rs[j].W
		}
		return rs[i].H < rs[j].H
	})
}

// Resize changes the surface size, keeping every rect at its position and
// the pixels under it. It fails without changes when a rect would fall
// outside the new surface.
func (a *Atlas) Resize(width, height int) error {
	a.checkOpen()
	if width < 1 || height < 1 || width > a.opts.MaxSize || height > a.opts.MaxSize {
		return &OptionError{Field: "Size", Reason: fmt.Sprintf("%dx%d outside 1..%d", width, height, a.opts.MaxSize)}
	}

	t := newTable(width, height)
	t.seq = a.tbl.seq
	for i := 0; i < a.tbl.count; i++ {
		r := a.tbl.rects[i]
		if !r.Valid {
			continue
		}
		if err := t.packer.MarkUsed(r.placement()); err != nil {
			return fmt.Errorf("%w: %q at %s", ErrTooLarge, r.Mesh, r.placement())
		}
		t.claim(i, r)
	}
	// keep invalidated slots below the old high-water mark claimable
	t.count = max(t.count, a.tbl.count)

	if a.pixels != nil {
		pix := make([]byte, width*height*a.opts.Channels)
		dst := a.imageView(pix, width, height)
		src := a.imageView(a.pixels, a.tbl.width, a.tbl.height)
		copyPixels(dst, src)
		a.pixels = pix
	}

	oldW, oldH := a.tbl.width, a.tbl.height
	a.tbl = t
	a.dirty = true
	a.log.Info("resized atlas",
		zap.Int("fromWidth", oldW), zap.Int("fromHeight", oldH),
		zap.Int("width", width), zap.Int("height", height))
	return nil
}

// Grow doubles both axes, capped at MaxSize. It reports false when the
// atlas is already at its maximum size.
func (a *Atlas) Grow() bool {
	w, h, ok := a.grown(a.tbl.width, a.tbl.height)
	if !ok {
		return false
	}
	return a.Resize(w, h) == nil
}

func (a *Atlas) grown(w, h int) (int, int, bool) {
	nw, nh := min(w*2, a.opts.MaxSize), min(h*2, a.opts.MaxSize)
	if nw == w && nh == h {
		return w, h, false
	}
	return nw, nh, true
}

func isCapacity(err error) bool {
	return errors.Is(err, ErrAtlasFull) || errors.Is(err, ErrTooLarge)
}
