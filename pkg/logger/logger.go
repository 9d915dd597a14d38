// Package logger wraps zap behind a small key/value API so domain code does
// not depend on zap types directly.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled, structured logger
type Logger struct {
	sugar *zap.SugaredLogger
}

// New creates a logger for the given environment and level.
// Production environments log JSON; everything else logs console output.
func New(environment, level string) (*Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &Logger{sugar: z.Sugar()}, nil
}

// NewNop returns a logger that discards everything; intended for tests.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// With returns a child logger with the given key/value pairs attached
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(kv...)}
}

// Debug logs at debug level with key/value pairs
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.sugar.Debugw(msg, kv...)
}

// Info logs at info level with key/value pairs
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.sugar.Infow(msg, kv...)
}

// Warn logs at warn level with key/value pairs
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.sugar.Warnw(msg, kv...)
}

// Error logs at error level with key/value pairs
func (l *Logger) Error(msg string, kv ...interface{}) {
	l.sugar.Errorw(msg, kv...)
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
