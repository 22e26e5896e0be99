// Package logger owns the process-wide zap logger. Commands configure it
// once at startup; packages that take a logger get a Named child.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It discards everything until Init runs.
var Log = zap.NewNop()

// Sugar is the printf-style view of Log.
var Sugar = Log.Sugar()

// level is shared by every core so SetLevel applies without rebuilding.
var level = zap.NewAtomicLevel()

// FileConfig controls the rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig keeps a few compressed generations of a 20MB file.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// Options selects the outputs of Setup.
type Options struct {
	Level   string
	File    FileConfig // no file output when Path is empty
	Console io.Writer  // no console output when nil
}

// Init logs colored lines to stderr at the given level, and to a rotating
// file as well when logFile is set. Stdout is left to command output.
func Init(levelName, logFile string) error {
	opts := Options{Level: levelName, Console: os.Stderr}
	if logFile != "" {
		opts.File = DefaultFileConfig(logFile)
	}
	return Setup(opts)
}

// Setup replaces the global logger.
func Setup(opts Options) error {
	level.SetLevel(parseLevel(opts.Level))

	var cores []zapcore.Core
	if opts.Console != nil {
		enc := zapcore.NewConsoleEncoder(encoderConfig(
			zapcore.TimeEncoderOfLayout("15:04:05"),
			zapcore.CapitalColorLevelEncoder,
		))
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(opts.Console)), level))
	}
	if opts.File.Path != "" {
		w, err := rotatingFile(opts.File)
		if err != nil {
			return err
		}
		enc := zapcore.NewConsoleEncoder(encoderConfig(
			zapcore.ISO8601TimeEncoder,
			zapcore.CapitalLevelEncoder,
		))
		cores = append(cores, zapcore.NewCore(enc, w, level))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Sugar = Log.Sugar()
	return nil
}

// SetLevel changes the threshold of the current logger in place.
func SetLevel(name string) {
	level.SetLevel(parseLevel(name))
}

func rotatingFile(cfg FileConfig) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}), nil
}

func encoderConfig(timeEnc zapcore.TimeEncoder, levelEnc zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       timeEnc,
		EncodeLevel:      levelEnc,
		EncodeName:       zapcore.FullNameEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}
}

// parseLevel maps a config level name to zap. Unknown names mean info.
func parseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Named returns a child of the global logger for one component. Library
// packages receive it through their options instead of using Log directly.
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

// Sync flushes buffered entries. Errors from syncing a terminal are noise.
func Sync() {
	_ = Log.Sync()
}

// Info logs at info level on the global logger.
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Error logs at error level on the global logger.
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}
