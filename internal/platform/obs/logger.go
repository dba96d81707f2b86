package obs

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger tagged with the component name.
// APP_ENV=dev switches to a human readable console writer.
func NewLogger(component string) zerolog.Logger {
	return newLogger(os.Stdout, component, os.Getenv("APP_ENV"))
}

// NewLoggerTo is NewLogger writing to out.
func NewLoggerTo(out io.Writer, component string) zerolog.Logger {
	return newLogger(out, component, os.Getenv("APP_ENV"))
}

func newLogger(out io.Writer, component, env string) zerolog.Logger {
	if strings.ToLower(env) == "dev" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}

// SetLevel sets the global log level; unknown names fall back to info.
func SetLevel(name string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
