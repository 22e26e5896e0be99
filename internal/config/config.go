// Package config handles meshatlas configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/meshatlas/pkg/atlas"
)

// Config holds all tool settings.
type Config struct {
	Atlas   AtlasConfig   `yaml:"atlas"`
	Import  ImportConfig  `yaml:"import"`
	Preview PreviewConfig `yaml:"preview"`
	Logging LoggingConfig `yaml:"logging"`
}

// AtlasConfig holds the defaults for new atlases.
type AtlasConfig struct {
	Size            int    `yaml:"size"`
	MaxSize         int    `yaml:"max_size"`
	DPI             int    `yaml:"dpi"`
	Padding         int    `yaml:"padding"`
	Channels        int    `yaml:"channels"`         // 4 = RGBA8, 1 = alpha
	RepackThreshold int    `yaml:"repack_threshold"` // pixels
	Prefix          string `yaml:"prefix"`           // managed atlas name prefix
}

// ImportConfig holds asset import settings.
type ImportConfig struct {
	MeshDirs      []string      `yaml:"mesh_dirs"`  // directories searched for *.mesh.yaml
	OutputDir     string        `yaml:"output_dir"` // where imported assets are written
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// PreviewConfig holds preview window settings.
type PreviewConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	VSync        bool   `yaml:"vsync"`
	ShowOutlines bool   `yaml:"show_outlines"`
	Background   string `yaml:"background"` // #rrggbb
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Atlas: AtlasConfig{
			Size:            atlas.DefaultSize,
			MaxSize:         atlas.DefaultMaxSize,
			DPI:             atlas.DefaultDPI,
			Padding:         atlas.DefaultPadding,
			Channels:        atlas.DefaultChannels,
			RepackThreshold: 0,
			Prefix:          "atlas",
		},
		Import: ImportConfig{
			MeshDirs:      []string{"meshes"},
			OutputDir:     "build",
			WatchDebounce: 200 * time.Millisecond,
		},
		Preview: PreviewConfig{
			Width:        1280,
			Height:       720,
			VSync:        true,
			ShowOutlines: true,
			Background:   "#202428",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Options converts the atlas settings to atlas options. Sampling state
// comes from per-asset metadata and is left at its defaults.
func (c *AtlasConfig) Options() atlas.Options {
	opts := atlas.DefaultOptions()
	opts.Width = c.Size
	opts.Height = c.Size
	opts.MaxSize = c.MaxSize
	opts.DPI = float32(c.DPI)
	opts.Padding = c.Padding
	opts.Channels = c.Channels
	opts.RepackThreshold = c.RepackThreshold
	return opts
}
