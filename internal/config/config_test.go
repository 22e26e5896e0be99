package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/meshatlas/pkg/atlas"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test atlas defaults
	if cfg.Atlas.Size != 1024 {
		t.Errorf("expected size 1024, got %d", cfg.Atlas.Size)
	}
	if cfg.Atlas.DPI != 96 {
		t.Errorf("expected dpi 96, got %d", cfg.Atlas.DPI)
	}
	if cfg.Atlas.Padding != 2 {
		t.Errorf("expected padding 2, got %d", cfg.Atlas.Padding)
	}
	if cfg.Atlas.Channels != 4 {
		t.Errorf("expected 4 channels, got %d", cfg.Atlas.Channels)
	}
	if cfg.Atlas.Prefix != "atlas" {
		t.Errorf("expected prefix 'atlas', got %s", cfg.Atlas.Prefix)
	}

	// Test import defaults
	if len(cfg.Import.MeshDirs) != 1 || cfg.Import.MeshDirs[0] != "meshes" {
		t.Errorf("expected mesh dirs [meshes], got %v", cfg.Import.MeshDirs)
	}
	if cfg.Import.WatchDebounce != 200*time.Millisecond {
		t.Errorf("expected debounce 200ms, got %v", cfg.Import.WatchDebounce)
	}

	// Test preview defaults
	if cfg.Preview.Width != 1280 || cfg.Preview.Height != 720 {
		t.Errorf("expected preview 1280x720, got %dx%d", cfg.Preview.Width, cfg.Preview.Height)
	}
	if !cfg.Preview.VSync {
		t.Error("expected vsync to be true by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestAtlasOptions(t *testing.T) {
	cfg := Default()
	cfg.Atlas.Size = 512
	cfg.Atlas.DPI = 72
	cfg.Atlas.RepackThreshold = 3

	opts := cfg.Atlas.Options()
	if opts.Width != 512 || opts.Height != 512 {
		t.Errorf("expected 512x512, got %dx%d", opts.Width, opts.Height)
	}
	if opts.DPI != 72 || opts.RepackThreshold != 3 || opts.MaxSize != atlas.DefaultMaxSize {
		t.Errorf("unexpected options %+v", opts)
	}
	if _, err := atlas.New(opts); err != nil {
		t.Errorf("options rejected: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Atlas.Channels = 3

	err := cfg.Validate()
	var oe *atlas.OptionError
	if !errors.As(err, &oe) || oe.Field != "Channels" {
		t.Errorf("expected Channels option error, got %v", err)
	}
}

func TestDecodeFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
atlas:
  size: 2048
  max_size: 8192
  dpi: 144
  padding: 1
  channels: 1
  repack_threshold: 4
  prefix: "ui_"

import:
  mesh_dirs: ["art/meshes", "art/icons"]
  output_dir: "out"
  watch_debounce: 1s

preview:
  width: 800
  height: 600
  vsync: false
  show_outlines: false

logging:
  level: "debug"
  log_file: "meshatlas.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := decodeFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Atlas.Size != 2048 || cfg.Atlas.MaxSize != 8192 {
		t.Errorf("expected size 2048/8192, got %d/%d", cfg.Atlas.Size, cfg.Atlas.MaxSize)
	}
	if cfg.Atlas.DPI != 144 || cfg.Atlas.Padding != 1 || cfg.Atlas.Channels != 1 {
		t.Errorf("unexpected atlas config %+v", cfg.Atlas)
	}
	if cfg.Atlas.RepackThreshold != 4 || cfg.Atlas.Prefix != "ui_" {
		t.Errorf("unexpected atlas config %+v", cfg.Atlas)
	}

	if len(cfg.Import.MeshDirs) != 2 || cfg.Import.MeshDirs[1] != "art/icons" {
		t.Errorf("expected two mesh dirs, got %v", cfg.Import.MeshDirs)
	}
	if cfg.Import.OutputDir != "out" {
		t.Errorf("expected output dir 'out', got %s", cfg.Import.OutputDir)
	}
	if cfg.Import.WatchDebounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Import.WatchDebounce)
	}

	if cfg.Preview.Width != 800 || cfg.Preview.VSync || cfg.Preview.ShowOutlines {
		t.Errorf("unexpected preview config %+v", cfg.Preview)
	}
	// not in the file, so the default survives
	if cfg.Preview.Background != "#202428" {
		t.Errorf("expected default background, got %s", cfg.Preview.Background)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "meshatlas.log" {
		t.Errorf("expected log file 'meshatlas.log', got %s", cfg.Logging.LogFile)
	}
}

func TestDecodeFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
atlas:
  size: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := decodeFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestDecodeFileMissing(t *testing.T) {
	cfg := Default()
	err := decodeFile(cfg, "/nonexistent/path/meshatlas.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestLocate(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv(EnvConfig, "")

	if path := locate(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// the user config directory is searched
	userPath := filepath.Join(tmpDir, "xdg", "meshatlas", FileName)
	if err := os.MkdirAll(filepath.Dir(userPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userPath, []byte("atlas:\n  size: 256\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := locate(); path != userPath {
		t.Errorf("locate() = %q, want %q", path, userPath)
	}

	// the working directory beats the user directory
	if err := os.WriteFile(FileName, []byte("atlas:\n  size: 256\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := locate(); path != FileName {
		t.Errorf("locate() = %q, want %q", path, FileName)
	}

	// the environment beats both, even when the file is missing
	t.Setenv(EnvConfig, "elsewhere.yaml")
	if path := locate(); path != "elsewhere.yaml" {
		t.Errorf("locate() = %q, want elsewhere.yaml", path)
	}

	// and the flag beats the environment
	*flagConfig = "flag.yaml"
	defer func() { *flagConfig = "" }()
	if path := locate(); path != "flag.yaml" {
		t.Errorf("locate() = %q, want flag.yaml", path)
	}
}

func TestDecodeFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("atlas:\n  sise: 256\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := decodeFile(Default(), path); err == nil {
		t.Error("expected error for misspelled key")
	}
}

func TestDecodeFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.Atlas.Size != atlas.DefaultSize {
		t.Errorf("empty file changed size to %d", cfg.Atlas.Size)
	}
}

func TestSaveTo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, FileName)

	cfg := Default()
	cfg.Atlas.Size = 256
	cfg.Import.MeshDirs = []string{"a", "b"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := decodeFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Atlas.Size != 256 || len(loaded.Import.MeshDirs) != 2 {
		t.Errorf("saved config not reloaded: %+v", loaded)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), fileHeader) {
		t.Errorf("saved file missing header: %q", data[:min(len(data), 40)])
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only %s in %s, found %d entries", FileName, dir, len(entries))
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "size flag above max size",
			setup: func() {
				*flagSize = 16384
			},
			verify: func(cfg *Config) {
				if cfg.Atlas.Size != 16384 || cfg.Atlas.MaxSize != 16384 {
					t.Errorf("expected size and max 16384, got %d/%d", cfg.Atlas.Size, cfg.Atlas.MaxSize)
				}
			},
			teardown: func() {
				*flagSize = 0
			},
		},
		{
			name: "zero padding flag",
			setup: func() {
				*flagPadding = 0
			},
			verify: func(cfg *Config) {
				if cfg.Atlas.Padding != 0 {
					t.Errorf("expected padding 0, got %d", cfg.Atlas.Padding)
				}
			},
			teardown: func() {
				*flagPadding = -1
			},
		},
		{
			name: "meshes and output flags",
			setup: func() {
				*flagMeshes = "src/meshes"
				*flagOutput = "dist"
			},
			verify: func(cfg *Config) {
				if len(cfg.Import.MeshDirs) != 1 || cfg.Import.MeshDirs[0] != "src/meshes" {
					t.Errorf("expected mesh dirs [src/meshes], got %v", cfg.Import.MeshDirs)
				}
				if cfg.Import.OutputDir != "dist" {
					t.Errorf("expected output dist, got %s", cfg.Import.OutputDir)
				}
			},
			teardown: func() {
				*flagMeshes = ""
				*flagOutput = ""
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Preview.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Preview.Width)
				}
				if cfg.Preview.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Preview.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
atlas:
  size: 512
  dpi: 72
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagDPI = 192
	defer func() {
		*flagConfig = ""
		*flagDPI = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// DPI should be from flag (192), not file (72)
	if cfg.Atlas.DPI != 192 {
		t.Errorf("expected dpi 192 from flag, got %d", cfg.Atlas.DPI)
	}

	// Size should be from file (512) since no flag override
	if cfg.Atlas.Size != 512 {
		t.Errorf("expected size 512 from file, got %d", cfg.Atlas.Size)
	}
}

func TestLoadRejectsInvalidAtlas(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, []byte("atlas:\n  dpi: -5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for negative dpi")
	}
}
