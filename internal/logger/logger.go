package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alkime/journal/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// LogFileName is the recorder's log file inside the working directory.
	LogFileName = "voice.log"

	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// SetupLogger configures structured logging based on environment.
func SetupLogger(cfg *config.Config) *slog.Logger {
	return setup(os.Stdout, level(cfg), true)
}

// SetupFileLogger logs to a rotated file under dir. The terminal belongs to
// the recorder UI, so nothing is written to stdout. The returned closer
// flushes and closes the file.
func SetupFileLogger(cfg *config.Config, dir string) (*slog.Logger, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}

	return setup(rotator, level(cfg), false), rotator
}

func level(cfg *config.Config) slog.Level {
	logLevel := slog.LevelInfo
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}

	return logLevel
}

func setup(w io.Writer, logLevel slog.Level, json bool) *slog.Logger {
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}
