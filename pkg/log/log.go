// Package log constructs the zap.Logger used throughout the service,
// grounded on the logger.NewLogger(&logger.LoggerConfig{...}) call sites in
// the teacher repo (pkg/persistence/badger/badger_test.go,
// pkg/node/node.go) even though that constructor itself fell outside the
// retrieved file set.
package log

import "go.uber.org/zap"

// Config controls logger construction.
type Config struct {
	// Debug enables development-mode logging: human-readable, colorized,
	// caller/stacktrace on warn+.
	Debug bool
}

// New builds a *zap.Logger per cfg.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
