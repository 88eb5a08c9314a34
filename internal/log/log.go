// Package log is the process-wide structured logger for go-proctor,
// a thin layer over slog. The level is held in a LevelVar so that a
// late Init (flags parse after the first log line) still takes effect
// on loggers already handed out.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	level  slog.LevelVar
	logger *slog.Logger
	mu     sync.Mutex
)

// Init sets the global log level. Unknown or empty levels fall back to
// info. Safe to call more than once; later calls only adjust the level.
func Init(lvl string) {
	level.Set(parseLevel(lvl))
	mu.Lock()
	if logger == nil {
		logger = newLogger()
		slog.SetDefault(logger)
	}
	mu.Unlock()
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: &level}
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// L returns the global logger, initializing it at info level if Init
// was never called.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = newLogger()
		slog.SetDefault(logger)
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
