package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagSize    = flag.Int("size", 0, "Atlas size in pixels")
	flagDPI     = flag.Int("dpi", 0, "Pixels per mesh unit")
	flagPadding = flag.Int("padding", -1, "Pixels of padding around each rect")
	flagMeshes  = flag.String("meshes", "", "Mesh directory (replaces import.mesh_dirs)")
	flagOutput  = flag.String("out", "", "Output directory for imported assets")
	flagLogFile = flag.String("log", "", "Log file path")
	flagWidth   = flag.Int("width", 0, "Preview window width")
	flagHeight  = flag.Int("height", 0, "Preview window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSize > 0 {
		cfg.Atlas.Size = *flagSize
		cfg.Atlas.MaxSize = max(cfg.Atlas.MaxSize, *flagSize)
	}
	if *flagDPI > 0 {
		cfg.Atlas.DPI = *flagDPI
	}
	if *flagPadding >= 0 {
		cfg.Atlas.Padding = *flagPadding
	}
	if *flagMeshes != "" {
		cfg.Import.MeshDirs = []string{*flagMeshes}
	}
	if *flagOutput != "" {
		cfg.Import.OutputDir = *flagOutput
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagWidth > 0 {
		cfg.Preview.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Preview.Height = *flagHeight
	}
}
