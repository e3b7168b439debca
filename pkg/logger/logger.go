// Package logger builds the root zerolog logger for the ballast
// service from the BALLAST_LOG_* settings.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config carries the logging settings resolved from the environment.
type Config struct {
	Level  string // trace, debug, info, warn, error (BALLAST_LOG_LEVEL)
	Pretty bool   // console writer, enabled in dev mode (BALLAST_DEV_MODE)
}

// New builds the root logger. Unknown or empty level strings fall back
// to info so a typo in the environment never silences the service.
// Pretty output goes to stderr, keeping stdout clean for piping.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", "ballast").
		Logger()
}

// SetGlobalLogger replaces the zerolog package-level logger so stray
// log.Info() calls share the configured sinks.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
