// Package mesh holds the 2D polygon meshes that get rasterized into atlases.
package mesh

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/Faultbox/meshatlas/pkg/math"
)

// Mesh errors.
var (
	ErrNoFrames     = errors.New("mesh has no frames")
	ErrBadFaceIndex = errors.New("face index out of range")
	ErrInvalidColor = errors.New("invalid color")
	ErrEmptyName    = errors.New("mesh name is empty")
	ErrBadVertex    = errors.New("vertex must have two components")
)

// Face is a filled polygon referencing frame vertices in winding order.
type Face struct {
	Indices []int
	Color   color.NRGBA
	Opacity float32
}

// Frame is one animation frame of a mesh.
type Frame struct {
	Vertices []math.Vec2
	Faces    []Face
}

// Mesh is a named polygon mesh with one or more frames.
type Mesh struct {
	name   string
	frames []Frame
}

// New creates a mesh and validates its face indices.
func New(name string, frames ...Frame) (*Mesh, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, name)
	}
	for fi, f := range frames {
		for ci, face := range f.Faces {
			for _, idx := range face.Indices {
				if idx < 0 || idx >= len(f.Vertices) {
					return nil, fmt.Errorf("%w: %s frame %d face %d index %d (%d vertices)",
						ErrBadFaceIndex, name, fi, ci, idx, len(f.Vertices))
				}
			}
		}
	}
	return &Mesh{name: name, frames: frames}, nil
}

// Name returns the mesh identity.
func (m *Mesh) Name() string { return m.name }

// FrameCount returns the number of frames.
func (m *Mesh) FrameCount() int { return len(m.frames) }

// Frame returns frame i.
func (m *Mesh) Frame(i int) Frame { return m.frames[i] }

// FrameBounds returns the bounds of the vertices of frame i.
func (m *Mesh) FrameBounds(i int) math.Bounds2 {
	return math.BoundsFromPoints(m.frames[i].Vertices)
}

// Bounds returns the union of all frame bounds, which is the cell size
// every frame shares in an atlas strip.
func (m *Mesh) Bounds() math.Bounds2 {
	b := m.FrameBounds(0)
	for i := 1; i < len(m.frames); i++ {
		b = b.Union(m.FrameBounds(i))
	}
	return b
}

// Polygon returns the vertex positions of a face in winding order.
func (f Frame) Polygon(face Face) []math.Vec2 {
	pts := make([]math.Vec2, len(face.Indices))
	for i, idx := range face.Indices {
		pts[i] = f.Vertices[idx]
	}
	return pts
}
