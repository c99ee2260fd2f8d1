package testsupport

import (
	"testing"

	"papertriage/internal/checkpoint"
	"papertriage/internal/config"
	"papertriage/internal/history"
	"papertriage/internal/logging"
)

// MustOpenCheckpoints opens the checkpoint store for the test config.
func MustOpenCheckpoints(t testing.TB, cfg *config.Config) *checkpoint.Store {
	t.Helper()
	return checkpoint.Open(cfg.CheckpointPath(), logging.NewNop())
}

// MustOpenHistory opens the run-history store for the test config and closes
// it when the test finishes.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
