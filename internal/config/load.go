package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory and the
// user config directory.
const FileName = "meshatlas.yaml"

// EnvConfig names an environment variable holding a config path. It is
// consulted after --config and before the search paths.
const EnvConfig = "MESHATLAS_CONFIG"

// Load builds the effective configuration. Later sources win:
// defaults, then the config file, then command-line flags.
func Load() (*Config, error) {
	cfg := Default()

	if path := locate(); path != "" {
		if err := decodeFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the atlas settings produce valid atlas options.
func (c *Config) Validate() error {
	opts := c.Atlas.Options()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("atlas config: %w", err)
	}
	return nil
}

// SearchPaths lists the implicit config locations, most specific first.
func SearchPaths() []string {
	return []string{
		FileName,
		filepath.Join(ConfigDir(), FileName),
	}
}

// locate picks the config file to read, or "" to run on defaults.
// Explicit paths are returned even if missing so the error surfaces.
func locate() string {
	if p := ConfigPath(); p != "" {
		return p
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory for this OS.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "MeshAtlas")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "MeshAtlas")
		}
		return filepath.Join(home, "AppData", "Roaming", "MeshAtlas")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "meshatlas")
	}
	return filepath.Join(home, ".config", "meshatlas")
}

// decodeFile overlays the YAML document at path onto cfg. Keys that do not
// map to a field are rejected so typos do not silently fall back to
// defaults. An empty file changes nothing.
func decodeFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
