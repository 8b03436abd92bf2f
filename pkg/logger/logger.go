package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger

	out io.Writer = os.Stderr
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	build(consoleWriter(out), zerolog.InfoLevel)
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

// build replaces both Log and the zerolog/log package logger, so code that
// logs through either ends up in the same sink.
func build(w io.Writer, level zerolog.Level) {
	Log = zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
	log.Logger = Log
}

// SetOutput redirects logs, keeping the current format.
func SetOutput(w io.Writer, format string) {
	out = w
	SetFormat(format)
}

// SetFormat switches between "console" (default) and "json" output.
func SetFormat(format string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		build(out, Log.GetLevel())
	case "", "console", "text":
		build(consoleWriter(out), Log.GetLevel())
	default:
		build(consoleWriter(out), Log.GetLevel())
		Log.Warn().Str("format", format).Msg("invalid log format, defaulting to console")
	}
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}
