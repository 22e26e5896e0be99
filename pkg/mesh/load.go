package mesh

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshatlas/pkg/math"
)

// Ext is the file suffix of mesh source files.
const Ext = ".mesh.yaml"

type fileFace struct {
	Indices []int    `yaml:"indices"`
	Color   string   `yaml:"color"`
	Opacity *float32 `yaml:"opacity"`
}

type fileFrame struct {
	Vertices [][]float32 `yaml:"vertices"`
	Faces    []fileFace  `yaml:"faces"`
}

type fileMesh struct {
	Name   string      `yaml:"name"`
	Frames []fileFrame `yaml:"frames"`
}

// Load parses a mesh from YAML. fallbackName is used when the document
// has no name field.
func Load(data []byte, fallbackName string) (*Mesh, error) {
	var fm fileMesh
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("parsing mesh yaml: %w", err)
	}

	name := fm.Name
	if name == "" {
		name = fallbackName
	}

	frames := make([]Frame, 0, len(fm.Frames))
	for fi, ff := range fm.Frames {
		frame := Frame{Vertices: make([]math.Vec2, len(ff.Vertices))}
		for i, v := range ff.Vertices {
			if len(v) != 2 {
				return nil, fmt.Errorf("%w: %s frame %d vertex %d has %d components", ErrBadVertex, name, fi, i, len(v))
			}
			frame.Vertices[i] = math.Vec2{X: v[0], Y: v[1]}
		}
		for ci, f := range ff.Faces {
			c, err := ParseColor(f.Color)
			if err != nil {
				return nil, fmt.Errorf("%s frame %d face %d: %w", name, fi, ci, err)
			}
			opacity := float32(1)
			if f.Opacity != nil {
				opacity = *f.Opacity
			}
			frame.Faces = append(frame.Faces, Face{Indices: f.Indices, Color: c, Opacity: opacity})
		}
		frames = append(frames, frame)
	}

	return New(name, frames...)
}

// LoadFile parses a mesh file. The mesh name defaults to the file name
// without the mesh suffix.
func LoadFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return Load(data, strings.TrimSuffix(filepath.Base(path), Ext))
}

// ParseColor parses "#rrggbb" or "#rrggbbaa". An empty string is opaque white.
func ParseColor(s string) (color.NRGBA, error) {
	if s == "" {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}, nil
	}
	raw := strings.TrimPrefix(s, "#")
	if len(raw) != 6 && len(raw) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	c := color.NRGBA{R: b[0], G: b[1], B: b[2], A: 255}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}
