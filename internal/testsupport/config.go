// Package testsupport provides shared helpers for package tests: temp-dir
// seeded configurations and pre-opened stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"papertriage/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paperless.BaseURL = "http://paperless.test"
	cfg.Paperless.APIToken = "test-token"
	cfg.Tags.LowQualityTagID = 1
	cfg.Tags.HighQualityTagID = 2
	cfg.Processing.DocumentDelayMS = 0
	cfg.Backends = []config.Backend{{
		Name:  "test",
		URL:   "http://backend.test/api/generate",
		Model: "test-model",
	}}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithAPIBind sets the HTTP status API bind address on the test config.
func WithAPIBind(bind string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIBind = bind
	}
}

// WithBackends replaces the backend list on the test config.
func WithBackends(backends ...config.Backend) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backends = backends
	}
}
