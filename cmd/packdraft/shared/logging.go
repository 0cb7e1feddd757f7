package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a console logger.
func SetupLogger(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}

// SetupFileLogger configures a logger writing to the given file, falling back
// to stderr when the file cannot be opened.
func SetupFileLogger(path string, debug bool) *log.Logger {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := SetupLogger(debug)
		logger.Warn("Failed to open log file, logging to stderr", "path", path, "error", err)
		return logger
	}

	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(f, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}
