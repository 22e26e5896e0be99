package mesh

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/meshatlas/pkg/math"
)

const triangleYAML = `
name: tri
frames:
  - vertices: [[0, 0], [2, 0], [1, 1]]
    faces:
      - indices: [0, 1, 2]
        color: "#ff000080"
  - vertices: [[-1, 0], [1, 0], [0, 3]]
    faces:
      - indices: [0, 1, 2]
        color: "#00ff00"
        opacity: 0.5
`

func TestLoad(t *testing.T) {
	m, err := Load([]byte(triangleYAML), "fallback")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m.Name() != "tri" {
		t.Errorf("expected name tri, got %s", m.Name())
	}
	if m.FrameCount() != 2 {
		t.Fatalf("expected 2 frames, got %d", m.FrameCount())
	}

	f0 := m.Frame(0).Faces[0]
	if f0.Color != (color.NRGBA{R: 255, A: 128}) {
		t.Errorf("unexpected color %v", f0.Color)
	}
	if f0.Opacity != 1 {
		t.Errorf("expected default opacity 1, got %f", f0.Opacity)
	}
	if m.Frame(1).Faces[0].Opacity != 0.5 {
		t.Errorf("expected opacity 0.5, got %f", m.Frame(1).Faces[0].Opacity)
	}
}

func TestBoundsUnionAcrossFrames(t *testing.T) {
	m, err := Load([]byte(triangleYAML), "")
	if err != nil {
		t.Fatal(err)
	}

	want0 := math.Bounds2{Min: math.Vec2{X: 0, Y: 0}, Max: math.Vec2{X: 2, Y: 1}}
	if got := m.FrameBounds(0); got != want0 {
		t.Errorf("FrameBounds(0) = %v, want %v", got, want0)
	}

	want := math.Bounds2{Min: math.Vec2{X: -1, Y: 0}, Max: math.Vec2{X: 2, Y: 3}}
	if got := m.Bounds(); got != want {
		t.Errorf("Bounds = %v, want %v", got, want)
	}
}

func TestLoadFallbackName(t *testing.T) {
	data := []byte("frames:\n  - vertices: [[0,0],[1,0],[0,1]]\n")
	m, err := Load(data, "rock")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "rock" {
		t.Errorf("expected fallback name rock, got %s", m.Name())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"no frames", "name: a\n", ErrNoFrames},
		{"bad index", "name: a\nframes:\n  - vertices: [[0,0]]\n    faces:\n      - indices: [0, 3]\n", ErrBadFaceIndex},
		{"bad color", "name: a\nframes:\n  - vertices: [[0,0]]\n    faces:\n      - indices: [0]\n        color: \"#12\"\n", ErrInvalidColor},
		{"bad vertex", "name: a\nframes:\n  - vertices: [[0,0,0]]\n", ErrBadVertex},
		{"no name", "frames:\n  - vertices: [[0,0]]\n", ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml), "")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"", color.NRGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"#102030", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}, false},
		{"10203040", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}, false},
		{"#zzzzzz", color.NRGBA{}, true},
		{"#1234", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLibraryLoadDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "props")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		filepath.Join(dir, "b.mesh.yaml"):     "frames:\n  - vertices: [[0,0],[1,0],[0,1]]\n",
		filepath.Join(sub, "a.mesh.yaml"):     "frames:\n  - vertices: [[0,0],[1,0],[0,1]]\n",
		filepath.Join(dir, "notes.txt"):       "ignored",
		filepath.Join(dir, "c.mesh.yaml.bak"): "ignored",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	lib := NewLibrary()
	if err := lib.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	names := lib.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("expected [b a] in walk order, got %v", names)
	}
	if _, ok := lib.Get("a"); !ok {
		t.Error("expected mesh a")
	}
}

func TestLibraryDuplicate(t *testing.T) {
	lib := NewLibrary()
	m, _ := New("x", Frame{Vertices: []math.Vec2{{}}})
	if err := lib.Add(m); err != nil {
		t.Fatal(err)
	}
	if err := lib.Add(m); !errors.Is(err, ErrDuplicateMesh) {
		t.Errorf("expected ErrDuplicateMesh, got %v", err)
	}

	lib.Replace(m)
	if lib.Len() != 1 {
		t.Errorf("Replace should not duplicate order entries, got %d", lib.Len())
	}
}
