package importer

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshatlas/pkg/formats"
)

// MetaExt is appended to a source path to find its import settings.
const MetaExt = ".meta"

// Meta holds per-asset import settings.
type Meta struct {
	Atlas AtlasMeta `yaml:"atlas"`
}

// AtlasMeta holds texture sampling settings for an atlas.
type AtlasMeta struct {
	Filter string `yaml:"filter"` // linear, nearest or point
	Clamp  string `yaml:"clamp"`  // clamp or repeat
}

// DefaultMeta returns linear filtering with clamped edges.
func DefaultMeta() *Meta {
	return &Meta{Atlas: AtlasMeta{Filter: "linear", Clamp: "clamp"}}
}

// LoadMeta reads <srcPath>.meta. A missing file yields the defaults.
func LoadMeta(srcPath string) (*Meta, error) {
	meta := DefaultMeta()

	data, err := os.ReadFile(srcPath + MetaExt)
	if errors.Is(err, os.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	if err := yaml.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("parsing meta %s: %w", srcPath+MetaExt, err)
	}
	return meta, nil
}

// Sampling maps the meta strings to texture state. Unknown values fall
// back to linear filtering and clamped edges.
func (m *Meta) Sampling() (formats.TextureFilter, formats.TextureClamp) {
	filter := formats.TextureFilterLinear
	switch m.Atlas.Filter {
	case "nearest", "point":
		filter = formats.TextureFilterNearest
	}
	clamp := formats.TextureClampClamp
	if m.Atlas.Clamp == "repeat" {
		clamp = formats.TextureClampRepeat
	}
	return filter, clamp
}
