package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a console logger on w. Warnings and errors are shown by
// default, everything from debug up with verbose, errors only with quiet.
func NewLogger(w io.Writer, verbose, quiet bool) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case quiet:
		level = zerolog.ErrorLevel
	case verbose:
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    !IsTerminal(w),
	}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// NewMCPLogger opens $cacheDir/mcp.log for JSON logs. Stdout belongs to the
// protocol in stdio mode, so MCP runs never log to the console. When disabled
// the returned logger discards everything.
func NewMCPLogger(enabled bool, cacheDir string) (zerolog.Logger, io.Closer, error) {
	if !enabled {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}

	if err := EnsureDirs(cacheDir); err != nil {
		return zerolog.Nop(), io.NopCloser(nil), fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(cacheDir, "mcp.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), io.NopCloser(nil), fmt.Errorf("opening %s: %w", logPath, err)
	}

	logger := zerolog.New(logFile).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("component", "mcp").
		Logger()
	return logger, logFile, nil
}
