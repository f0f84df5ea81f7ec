package utils

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	zeroLoggerOnce sync.Once
	zeroLoggerMu   sync.RWMutex
	zeroLogger     zerolog.Logger

	logOutput io.Writer = os.Stderr
	logFormat           = "console"
	logLevel            = zerolog.InfoLevel
)

// Logger returns the process-wide logger.
func Logger() *zerolog.Logger {
	zeroLoggerOnce.Do(rebuildLogger)
	zeroLoggerMu.RLock()
	defer zeroLoggerMu.RUnlock()
	l := zeroLogger
	return &l
}

func rebuildLogger() { configure(func() {}) }

// configure applies change and rebuilds the logger under the lock.
func configure(change func()) {
	zeroLoggerMu.Lock()
	defer zeroLoggerMu.Unlock()
	change()
	w := logOutput
	if logFormat == "console" {
		w = zerolog.ConsoleWriter{Out: logOutput, TimeFormat: time.RFC3339}
	}
	zeroLogger = zerolog.New(w).Level(logLevel).With().Timestamp().Logger()
}

// SetLogVerbosity sets the level from a verbosity in 0 (errors) .. 4 (debug).
func SetLogVerbosity(verbosity int) {
	var level zerolog.Level
	switch {
	case verbosity <= 0:
		level = zerolog.ErrorLevel
	case verbosity == 1:
		level = zerolog.WarnLevel
	case verbosity == 2, verbosity == 3:
		level = zerolog.InfoLevel
	default:
		level = zerolog.DebugLevel
	}
	configure(func() { logLevel = level })
}

// SetLogLevel sets the level by name ("debug", "info", "warn", "error").
func SetLogLevel(name string) error {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return errors.Wrapf(err, "log level %q", name)
	}
	configure(func() { logLevel = level })
	return nil
}

// SetLogFormat switches between "console" and "json" output.
func SetLogFormat(format string) error {
	switch format {
	case "console", "json":
	default:
		return errors.Errorf("unknown log format %q", format)
	}
	configure(func() { logFormat = format })
	return nil
}

// SetLogOutput redirects the logger, mostly for tests.
func SetLogOutput(w io.Writer) {
	configure(func() { logOutput = w })
}
