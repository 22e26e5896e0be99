package atlas

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/pkg/math"
)

// Mesh is what the atlas needs to know about a mesh.
type Mesh interface {
	Name() string
	FrameCount() int
	Bounds() math.Bounds2 // union over all frames
}

// MeshSource resolves mesh names.
type MeshSource interface {
	Mesh(name string) (Mesh, bool)
}

// MeshSourceFunc adapts a function to MeshSource.
type MeshSourceFunc func(name string) (Mesh, bool)

// Mesh implements MeshSource.
func (f MeshSourceFunc) Mesh(name string) (Mesh, bool) { return f(name) }

// Renderer draws one frame of a mesh into dst, clipped to cell. Mesh-space
// point p lands at cell.Min + (p - bounds.Min) * scale.
type Renderer interface {
	RenderMesh(dst draw.Image, m Mesh, frame int, cell image.Rectangle, bounds math.Bounds2, scale float32) error
}

// Place allocates a rect for m and rasterizes it into the live buffer. If
// rasterization fails a new rect is freed again, and a mesh that was
// already placed keeps its old rect and pixels.
func (a *Atlas) Place(m Mesh, rd Renderer) (Rect, error) {
	a.ensurePixels()
	old, placed := a.FindRectForMesh(m.Name())
	var saved []byte
	if placed {
		saved = a.copyRegion(old)
	}

	r, err := a.AllocateMesh(m)
	if err != nil {
		return Rect{}, err
	}

	r, err = a.rasterize(a.pixels, a.tbl.width, a.tbl.height, r, m, rd)
	if err != nil {
		if !placed {
			if ferr := a.FreeRect(r.Mesh); ferr != nil {
				return Rect{}, errors.Join(err, ferr)
			}
			return Rect{}, err
		}
		if rerr := a.tbl.revert(old); rerr != nil {
			return Rect{}, errors.Join(err, rerr)
		}
		a.pasteRegion(old, saved)
		a.dirty = true
		return Rect{}, err
	}
	a.tbl.rects[r.Slot] = r
	a.dirty = true
	return r, nil
}

// Update re-places and re-rasterizes the named meshes in place. When the
// surface runs out of room it falls back to a full Regenerate that includes
// the remaining meshes.
func (a *Atlas) Update(src MeshSource, rd Renderer, names ...string) error {
	a.checkOpen()
	for i, name := range names {
		m, ok := src.Mesh(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrMeshNotFound, name)
		}

		_, err := a.Place(m, rd)
		if isCapacity(err) {
			a.log.Info("atlas full, regenerating", zap.String("mesh", name), zap.Error(err))
			return a.regenerate(src, rd, names[i:])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Regenerate rebuilds the atlas from scratch: every valid mesh is packed
// again in allocation order and rasterized into a new buffer. The result
// replaces the atlas only when every mesh succeeded. When the surface is
// too small it doubles, up to MaxSize, and the pass restarts.
//
// Meshes that src no longer knows are dropped.
func (a *Atlas) Regenerate(src MeshSource, rd Renderer) error {
	a.checkOpen()
	return a.regenerate(src, rd, nil)
}

func (a *Atlas) regenerate(src MeshSource, rd Renderer, extra []string) error {
	live := a.tbl.ordered()

	meshes := make([]Mesh, 0, len(live)+len(extra))
	seen := make(map[string]bool, len(live)+len(extra))
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		m, ok := src.Mesh(name)
		if !ok {
			a.log.Warn("dropping rect for missing mesh", zap.String("mesh", name))
			return
		}
		meshes = append(meshes, m)
	}
	for _, r := range live {
		add(r.Mesh)
	}
	for _, name := range extra {
		add(name)
	}

	w, h := a.tbl.width, a.tbl.height
	for {
		t, pix, err := a.build(w, h, meshes, rd)
		if err == nil {
			grew := w != a.tbl.width || h != a.tbl.height
			a.tbl = t
			a.pixels = pix
			a.dirty = true
			a.log.Info("regenerated atlas",
				zap.Int("meshes", len(meshes)),
				zap.Int("width", w),
				zap.Int("height", h),
				zap.Bool("grew", grew),
				zap.Float64("occupancy", t.packer.Occupancy()))
			return nil
		}
		if !isCapacity(err) {
			return err
		}

		nw, nh, ok := a.grown(w, h)
		if !ok {
			return fmt.Errorf("regenerating at maximum size %dx%d: %w", w, h, err)
		}
		a.log.Debug("growing atlas", zap.Int("width", nw), zap.Int("height", nh))
		w, h = nw, nh
	}
}

// build packs and rasterizes meshes onto a fresh table and buffer.
func (a *Atlas) build(width, height int, meshes []Mesh, rd Renderer) (*table, []byte, error) {
	t := newTable(width, height)
	pix := make([]byte, width*height*a.opts.Channels)

	for _, m := range meshes {
		fw, fh := a.footprint(m.Bounds())
		frames := max(m.FrameCount(), 1)
		r, err := t.insert(m.Name(), m.Bounds(), frames, fw*frames, fh)
		if err != nil {
			return nil, nil, err
		}
		r, err = a.rasterize(pix, width, height, r, m, rd)
		if err != nil {
			return nil, nil, err
		}
		t.rects[r.Slot] = r
	}
	return t, pix, nil
}

// Redraw re-rasterizes every valid rect at its current position, as after
// loading a saved layout. If a mesh no longer fits its rect the atlas is
// regenerated instead. Rects whose mesh is missing from src stay blank.
func (a *Atlas) Redraw(src MeshSource, rd Renderer) error {
	a.checkOpen()
	live := a.tbl.live()
	pix := make([]byte, a.tbl.width*a.tbl.height*a.opts.Channels)
	drawn := make([]Rect, 0, len(live))

	for _, r := range live {
		m, ok := src.Mesh(r.Mesh)
		if !ok {
			a.log.Warn("no mesh for rect", zap.String("mesh", r.Mesh))
			continue
		}

		fw, fh := a.footprint(m.Bounds())
		frames := max(m.FrameCount(), 1)
		if !a.reusable(r, frames, fw*frames, fh) {
			a.log.Info("mesh changed size, regenerating", zap.String("mesh", r.Mesh))
			return a.regenerate(src, rd, nil)
		}

		r, err := a.rasterize(pix, a.tbl.width, a.tbl.height, r, m, rd)
		if err != nil {
			return err
		}
		drawn = append(drawn, r)
	}

	for _, r := range drawn {
		a.tbl.rects[r.Slot] = r
	}
	a.pixels = pix
	a.dirty = true
	return nil
}
