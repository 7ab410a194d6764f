package obs

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the shared structured logger. Output is JSON on stdout;
// level is taken from LOG_LEVEL (default info).
func NewLogger(service string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, service)
}

// NewLoggerTo builds a logger writing to w. Split out so tests can capture
// output.
func NewLoggerTo(w io.Writer, service string) zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
