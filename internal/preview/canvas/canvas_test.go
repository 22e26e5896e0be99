package canvas

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/meshatlas/pkg/atlas"
	"github.com/Faultbox/meshatlas/pkg/math"
)

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-4
}

func TestView_ScreenToAtlas(t *testing.T) {
	tests := []struct {
		name   string
		view   View
		screen math.Vec2
		want   math.Vec2
	}{
		// 800x600 screen, 100x100 atlas: scale 6*0.9 = 5.4, atlas spans 540px.
		{"center", DefaultView(), math.Vec2{X: 400, Y: 300}, math.Vec2{X: 50, Y: 50}},
		{"top left", DefaultView(), math.Vec2{X: 130, Y: 30}, math.Vec2{X: 0, Y: 0}},
		{"zoomed", View{Zoom: 2}, math.Vec2{X: 400 + 54, Y: 300}, math.Vec2{X: 55, Y: 50}},
		{"panned", View{Zoom: 1, Pan: math.Vec2{X: 54}}, math.Vec2{X: 400, Y: 300}, math.Vec2{X: 40, Y: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.view.ScreenToAtlas(tt.screen, 800, 600, 100, 100)
			if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
				t.Errorf("ScreenToAtlas(%v) = %v, want %v", tt.screen, got, tt.want)
			}
		})
	}
}

func TestView_TransformMatchesScreen(t *testing.T) {
	v := View{Zoom: 1.5, Pan: math.Vec2{X: -20, Y: 10}}
	m := v.Transform(800, 600, 256, 128)

	for _, screen := range []math.Vec2{{X: 400, Y: 300}, {X: 120, Y: 500}} {
		p := v.ScreenToAtlas(screen, 800, 600, 256, 128)
		clip := m.TransformVec2(p)
		wantX := screen.X/800*2 - 1
		wantY := 1 - screen.Y/600*2
		if !near(clip.X, wantX) || !near(clip.Y, wantY) {
			t.Errorf("screen %v -> atlas %v -> clip %v, want (%v, %v)", screen, p, clip, wantX, wantY)
		}
	}
}

func TestView_ZoomBy(t *testing.T) {
	v := DefaultView()
	v.ZoomBy(2)
	if v.Zoom != 2 {
		t.Errorf("Zoom = %v, want 2", v.Zoom)
	}
	v.ZoomBy(1000)
	if v.Zoom != MaxZoom {
		t.Errorf("Zoom = %v, want clamp to %v", v.Zoom, MaxZoom)
	}
	v.ZoomBy(0)
	if v.Zoom != MinZoom {
		t.Errorf("Zoom = %v, want clamp to %v", v.Zoom, MinZoom)
	}
}

func TestPickRect(t *testing.T) {
	opts := atlas.DefaultOptions()
	opts.Width, opts.Height = 64, 64
	opts.DPI = 1
	opts.Padding = 0
	a, err := atlas.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	box := math.Bounds2{Max: math.Vec2{X: 10, Y: 10}}
	if _, err := a.AllocateRect("rock", box, 1); err != nil {
		t.Fatalf("AllocateRect: %v", err)
	}

	tests := []struct {
		p    math.Vec2
		want string
	}{
		{math.Vec2{X: 5, Y: 5}, "rock"},
		{math.Vec2{X: 9.9, Y: 0}, "rock"},
		{math.Vec2{X: 10, Y: 5}, ""},
		{math.Vec2{X: -0.5, Y: 5}, ""},
		{math.Vec2{X: 40, Y: 40}, ""},
	}
	for _, tt := range tests {
		r, ok := PickRect(a, tt.p)
		got := ""
		if ok {
			got = r.Mesh
		}
		if got != tt.want {
			t.Errorf("PickRect(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestBatch(t *testing.T) {
	var b Batch
	box := math.Bounds2{Min: math.Vec2{X: 1, Y: 2}, Max: math.Vec2{X: 3, Y: 4}}
	b.AddQuad(box, math.Vec2{X: 0, Y: 0}, math.Vec2{X: 1, Y: 1}, ColorHover)

	if b.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", b.Len())
	}
	v := b.Vertices()
	// Third vertex is the max corner.
	third := v[2*FloatsPerVertex : 3*FloatsPerVertex]
	if third[0] != 3 || third[1] != 4 || third[2] != 1 || third[3] != 1 {
		t.Errorf("third vertex = %v", third)
	}
	if third[4] != ColorHover.R || third[7] != ColorHover.A {
		t.Errorf("vertex color = %v", third[4:])
	}

	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Len() after Reset = %d", b.Len())
	}

	// 40x20 area with 16px cells: 3x2 cells, half of them filled.
	b.AddChecker(math.Bounds2{Max: math.Vec2{X: 40, Y: 20}}, 16, ColorChecker)
	if b.Len() != 3*6 {
		t.Errorf("checker vertices = %d, want %d", b.Len(), 3*6)
	}
	b.Reset()
	b.AddChecker(math.Bounds2{Max: math.Vec2{X: 40, Y: 20}}, 0, ColorChecker)
	if b.Len() != 0 {
		t.Error("zero cell size should add nothing")
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff000080")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if c.R != 1 || c.G != 0 || !near(c.A, 128.0/255) {
		t.Errorf("color = %+v", c)
	}
	p := c.Premultiplied()
	if !near(p.R, c.A) || p.A != c.A {
		t.Errorf("premultiplied = %+v", p)
	}
	if _, err := ParseColor("red"); err == nil {
		t.Error("expected error for named color")
	}
}
