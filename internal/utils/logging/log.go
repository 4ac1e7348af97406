// Package logging provides the leveled printf-style loggers used across
// the whole program, backed by zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(consoleWriter(os.Stdout)).With().Timestamp().Logger()
}

// Setup configures the global logger. Level is one of "debug", "info",
// "warn", "error". When logFile is non-empty, output is mirrored there.
func Setup(level, logFile string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = consoleWriter(os.Stdout)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = io.MultiWriter(consoleWriter(os.Stdout), f)
	}

	logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// I logs at info level.
func I(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

// S logs a success message (info level, tagged).
func S(format string, args ...any) {
	logger.Info().Str("result", "ok").Msgf(format, args...)
}

// W logs at warn level.
func W(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

// E logs at error level.
func E(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// D logs at debug level. Higher l means chattier output; messages with
// l > 1 are dropped unless the logger runs at trace level.
func D(l int, format string, args ...any) {
	if l > 1 {
		logger.Trace().Msgf(format, args...)
		return
	}
	logger.Debug().Msgf(format, args...)
}
