// Package raster draws meshes into atlas pixel buffers.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"

	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/math"
	"github.com/Faultbox/meshatlas/pkg/mesh"
)

// Raster errors.
var (
	ErrUnsupportedMesh = errors.New("raster: unsupported mesh type")
	ErrDegenerate      = errors.New("raster: degenerate geometry")
	ErrBadFrame        = errors.New("raster: frame out of range")
)

// Renderer fills mesh faces with their colors using an anti-aliased
// scanline rasterizer. Faces are composited in order.
type Renderer struct {
	z *vector.Rasterizer
}

// New creates a renderer.
func New() *Renderer {
	return &Renderer{z: vector.NewRasterizer(0, 0)}
}

// RenderMesh implements atlas.Renderer. Mesh-space point p is drawn at
// cell.Min + (p - bounds.Min) * scale. Vertices outside the cell are
// clamped to its edges.
func (r *Renderer) RenderMesh(dst draw.Image, m atlas.Mesh, frame int, cell image.Rectangle, bounds math.Bounds2, scale float32) error {
	mm, ok := m.(*mesh.Mesh)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedMesh, m)
	}
	if frame < 0 || frame >= mm.FrameCount() {
		return fmt.Errorf("%w: %s frame %d of %d", ErrBadFrame, mm.Name(), frame, mm.FrameCount())
	}
	if cell.Empty() {
		return nil
	}

	f := mm.Frame(frame)
	if len(f.Faces) == 0 {
		return fmt.Errorf("%w: %s frame %d has no faces", ErrDegenerate, mm.Name(), frame)
	}

	drawn := 0
	for _, face := range f.Faces {
		pts := f.Polygon(face)
		if len(pts) < 3 || polygonArea(pts) == 0 {
			continue
		}

		size := math.Vec2{X: float32(cell.Dx()), Y: float32(cell.Dy())}
		r.z.Reset(cell.Dx(), cell.Dy())
		r.z.DrawOp = draw.Over
		for j, p := range pts {
			// vertices stay inside the rasterizer's canvas
			q := p.Sub(bounds.Min).Scale(scale).Clamp(math.Vec2{}, size)
			if j == 0 {
				r.z.MoveTo(q.X, q.Y)
			} else {
				r.z.LineTo(q.X, q.Y)
			}
		}
		r.z.ClosePath()

		src := image.NewUniform(faceColor(face))
		r.z.Draw(dst, cell, src, image.Point{})
		drawn++
	}

	if drawn == 0 {
		return fmt.Errorf("%w: %s frame %d has no face with area", ErrDegenerate, mm.Name(), frame)
	}
	return nil
}

func faceColor(face mesh.Face) color.NRGBA {
	c := face.Color
	op := clamp(face.Opacity, 0, 1)
	c.A = uint8(float32(c.A)*op + 0.5)
	return c
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

// polygonArea returns twice the signed area of a closed polygon.
func polygonArea(pts []math.Vec2) float32 {
	var a float32
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p.Cross(q)
	}
	return a
}

// Source exposes a mesh library to the atlas.
func Source(lib *mesh.Library) atlas.MeshSource {
	return atlas.MeshSourceFunc(func(name string) (atlas.Mesh, bool) {
		m, ok := lib.Get(name)
		if !ok {
			return nil, false
		}
		return m, true
	})
}
