// Package logger is the application-wide tagged logger. Every call carries a
// short subsystem tag ("DB", "CLI", ...) and a message; output goes through zap.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init replaces the process logger. level is one of debug, info, warn, error.
// Development mode switches to the human-readable console encoder.
func Init(level string, development bool) error {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("logger level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Set(l)
	return nil
}

// Set installs l as the process logger. Tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	base = l
	mu.Unlock()
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}

// tagged returns the global logger with a tag field naming the subsystem.
func tagged(tag string) *zap.Logger {
	return L().With(zap.String("tag", tag))
}

// Debug logs msg under tag at debug level.
func Debug(tag, msg string, fields ...zap.Field) {
	tagged(tag).Debug(msg, fields...)
}

// Info logs msg under tag at info level.
func Info(tag, msg string, fields ...zap.Field) {
	tagged(tag).Info(msg, fields...)
}

// Success logs at info level with outcome=ok.
func Success(tag, msg string, fields ...zap.Field) {
	tagged(tag).Info(msg, append(fields, zap.String("outcome", "ok"))...)
}

// Warn logs msg under tag at warn level.
func Warn(tag, msg string, fields ...zap.Field) {
	tagged(tag).Warn(msg, fields...)
}

// Error logs msg under tag at error level.
func Error(tag, msg string, fields ...zap.Field) {
	tagged(tag).Error(msg, fields...)
}

// Section marks the start of a logical phase in long-running commands.
func Section(title string) {
	L().Info("section", zap.String("title", title))
}

// Stats logs one named figure.
func Stats(key string, value any) {
	L().Info("stat", zap.String("key", key), zap.Any("value", value))
}

// Banner logs the tool start-up line.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	L().Info("corpecon starting", zap.String("version", version))
}
