// Package applog initialises the global slog logger for the command line tools.
// Call Init once at startup; library packages log through log/slog or an
// injected *slog.Logger.
package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var debugMode bool

// Init sets up the global slog logger.
// Structured text logs go to stderr, so stdout stays free for command output,
// and to a log file in the temp directory.
// If debug is true, the minimum log level is Debug; otherwise Info.
func Init(debug bool) {
	debugMode = debug

	writers := []io.Writer{os.Stderr}
	if f, err := os.OpenFile(LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		writers = append(writers, f)
	}
	slog.SetDefault(New(io.MultiWriter(writers...), debug))
}

// New returns a text logger writing to w.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything, for quiet simulations.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// IsDebug reports whether debug mode is active.
func IsDebug() bool {
	return debugMode
}

// LogPath is the file Init appends to.
func LogPath() string {
	return filepath.Join(os.TempDir(), "holdem-engine.log")
}
