package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger constructs a zerolog.Logger with sane defaults for the service.
func NewLogger(appEnv string) zerolog.Logger {
	return NewLoggerWithFile(appEnv, "")
}

// NewLoggerWithFile behaves like NewLogger and additionally tees JSON lines
// into a size-rotated file when logFile is set.
func NewLoggerWithFile(appEnv, logFile string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	var console io.Writer = os.Stdout
	if appEnv == "development" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	out := console
	if logFile != "" {
		out = zerolog.MultiLevelWriter(console, newRotatingFile(logFile))
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func newRotatingFile(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly. It keeps the freedom to replace the underlying logger in the
// future while presenting a stable surface area.
type Logger = zerolog.Logger
