package atlas

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/Faultbox/meshatlas/pkg/formats"
	"github.com/Faultbox/meshatlas/pkg/math"
)

var errDegenerate = errors.New("degenerate mesh")

type testMesh struct {
	name   string
	frames int
	bounds math.Bounds2
}

func (m testMesh) Name() string         { return m.name }
func (m testMesh) FrameCount() int      { return m.frames }
func (m testMesh) Bounds() math.Bounds2 { return m.bounds }

func box(w, h float32) math.Bounds2 {
	return math.Bounds2{Max: math.Vec2{X: w, Y: h}}
}

func sized(name string, w, h float32) testMesh {
	return testMesh{name: name, frames: 1, bounds: box(w, h)}
}

type meshSet map[string]Mesh

func (s meshSet) source() MeshSource {
	return MeshSourceFunc(func(name string) (Mesh, bool) {
		m, ok := s[name]
		return m, ok
	})
}

func (s meshSet) add(ms ...testMesh) meshSet {
	for _, m := range ms {
		s[m.name] = m
	}
	return s
}

// fillRenderer paints each cell with a solid color derived from the mesh
// name, shrunk by inset pixels.
type fillRenderer struct {
	fail  map[string]bool
	inset int
	calls int
}

func (f *fillRenderer) RenderMesh(dst draw.Image, m Mesh, frame int, cell image.Rectangle, bounds math.Bounds2, scale float32) error {
	f.calls++
	if f.fail[m.Name()] {
		return errDegenerate
	}
	c := color.RGBA{R: uint8(len(m.Name()) * 40), G: uint8(frame * 50), B: 200, A: 255}
	draw.Draw(dst, cell.Inset(f.inset), image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

type fakeDevice struct {
	creates  int
	updates  int
	destroys int
	fail     error
	next     Texture
	last     []byte
}

func (d *fakeDevice) CreateTexture(width, height, channels int, pixels []byte, filter formats.TextureFilter, clamp formats.TextureClamp) (Texture, error) {
	if d.fail != nil {
		return 0, d.fail
	}
	d.creates++
	d.next++
	d.last = append(d.last[:0], pixels...)
	return d.next, nil
}

func (d *fakeDevice) UpdateTexture(tex Texture, pixels []byte) error {
	if d.fail != nil {
		return d.fail
	}
	d.updates++
	d.last = append(d.last[:0], pixels...)
	return nil
}

func (d *fakeDevice) DestroyTexture(tex Texture) {
	d.destroys++
}

// newPixelAtlas creates an atlas where one mesh unit is one pixel and
// rects have no padding, so footprints equal mesh sizes.
func newPixelAtlas(t *testing.T, size int, mod ...func(*Options)) *Atlas {
	t.Helper()
	opts := DefaultOptions()
	opts.Width, opts.Height = size, size
	opts.MaxSize = max(size, opts.MaxSize)
	opts.DPI = 1
	opts.Padding = 0
	for _, fn := range mod {
		fn(&opts)
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func mustAllocate(t *testing.T, a *Atlas, name string, w, h float32) Rect {
	t.Helper()
	r, err := a.AllocateRect(name, box(w, h), 1)
	if err != nil {
		t.Fatalf("AllocateRect(%s): %v", name, err)
	}
	return r
}

func mustPlace(t *testing.T, a *Atlas, rd Renderer, m testMesh) Rect {
	t.Helper()
	r, err := a.Place(m, rd)
	if err != nil {
		t.Fatalf("Place(%s): %v", m.name, err)
	}
	return r
}

func assertNoOverlap(t *testing.T, a *Atlas) {
	t.Helper()
	rects := a.Rects()
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if rects[i].Bounds().Overlaps(rects[j].Bounds()) {
				t.Fatalf("rects %q %v and %q %v overlap",
					rects[i].Mesh, rects[i].Bounds(), rects[j].Mesh, rects[j].Bounds())
			}
		}
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
