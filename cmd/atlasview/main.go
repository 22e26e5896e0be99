// Package main is the entry point for the atlas preview window.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/meshatlas/internal/config"
	"github.com/Faultbox/meshatlas/internal/logger"
	"github.com/Faultbox/meshatlas/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()
	args := config.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: atlasview [flags] <file.atlas>")
		fmt.Fprintln(os.Stderr, "Keys: wheel zoom, drag pan, 0 reset view, O outlines, R regenerate, S save, F12 screenshot, Esc quit")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("atlasview starting", zap.String("source", args[0]))
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg, args[0], logger.Named("viewer"))
	if err != nil {
		logger.Error("failed to open viewer", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	err = v.Run()
	v.Close()
	if err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
