// Package dlog builds the zap loggers used by the watcher and the history
// engine, selected by a plain level name.
package dlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LevelInfo logs watcher lifecycle and recorded events.
	LevelInfo = "info"

	// LevelDebug additionally logs every diff computation.
	LevelDebug = "debug"

	// LevelNone disables logging.
	LevelNone = "none"
)

// GetLogger returns a console zap logger at the named level. The watcher
// streams to stderr so foreground runs read like an activity feed.
func GetLogger(level string) (*zap.Logger, error) {
	if level == LevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// MustGetLogger returns a logger at the named level or panics on an
// unknown level name.
func MustGetLogger(level string) *zap.Logger {
	l, err := GetLogger(level)
	if err != nil {
		panic(err)
	}
	return l
}
