// Package logging builds the zerolog logger shared across the app.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the given level. Format is
// either "console" for human-readable output or "json" for structured
// lines. Unknown levels fall back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	if strings.ToLower(format) == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	return zerolog.New(w).Level(parsed).With().Timestamp().Logger()
}

// NewDefault returns a console logger on stderr at info level.
func NewDefault() zerolog.Logger {
	return New(os.Stderr, "info", "console")
}
