package main

import (
	"fmt"
	"log/slog"

	"papertriage/internal/backend"
	"papertriage/internal/checkpoint"
	"papertriage/internal/config"
	"papertriage/internal/daemon"
	"papertriage/internal/history"
	"papertriage/internal/logging"
	"papertriage/internal/paperless"
	"papertriage/internal/processor"
)

func bootstrapDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	archive := paperless.NewClient(cfg.Paperless, logger)

	backends, err := backend.FromConfig(cfg.Backends)
	if err != nil {
		return nil, fmt.Errorf("build backends: %w", err)
	}

	checkpoints := checkpoint.Open(cfg.CheckpointPath(), logger)

	historyDB, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	proc := processor.New(cfg, archive, backends, checkpoints, logger,
		processor.WithRunRecorder(historyDB))

	d, err := daemon.New(cfg, proc, historyDB, logger)
	if err != nil {
		_ = historyDB.Close()
		return nil, err
	}

	logger.Info("daemon assembled",
		logging.Int("backends", len(backends)),
		logging.String("checkpoints", cfg.CheckpointPath()))
	return d, nil
}
