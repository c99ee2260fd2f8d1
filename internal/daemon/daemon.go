package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"papertriage/internal/config"
	"papertriage/internal/history"
	"papertriage/internal/logging"
	"papertriage/internal/processor"
)

// Daemon owns the long-lived triage services and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	processor *processor.Processor
	historyDB *history.Store
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	LockFilePath   string
	CheckpointPath string
	HistoryDBPath  string
	Processor      processor.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, proc *processor.Processor, historyDB *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || proc == nil {
		return nil, errors.New("daemon requires config and processor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		processor: proc,
		historyDB: historyDB,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the single-instance lock and brings up the status API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another papertriage daemon instance is already running")
	}

	if d.api != nil {
		if err := d.api.start(ctx); err != nil {
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("papertriage daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop requests the processor to halt and shuts down services.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.processor.Stop()
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("papertriage daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.historyDB != nil {
		return d.historyDB.Close()
	}
	return nil
}

// StartProcessing launches one batch run in the background. Only one run can
// be active at a time.
func (d *Daemon) StartProcessing(ctx context.Context) error {
	if d.processor.Status().State != processor.StateIdle {
		return errors.New("a processing run is already active")
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.processor.Run(ctx); err != nil {
			d.logger.Error("processing run failed", logging.Error(err))
		}
	}()
	return nil
}

// StopProcessing halts the active run at the next document boundary.
func (d *Daemon) StopProcessing() {
	d.processor.Stop()
}

// PauseResume toggles the pause state and reports whether processing is now
// paused.
func (d *Daemon) PauseResume() bool {
	if d.processor.Paused() {
		d.processor.Resume()
	} else {
		d.processor.Pause()
	}
	return d.processor.Paused()
}

// ResetStats zeroes the run counters.
func (d *Daemon) ResetStats() {
	d.processor.ResetStats()
}

// ClearCheckpoints drops all checkpoint records, starting a fresh epoch.
func (d *Daemon) ClearCheckpoints() (int, error) {
	records := len(d.processor.Checkpoints().Records())
	if err := d.processor.Checkpoints().Clear(); err != nil {
		return 0, err
	}
	return records, nil
}

// Logs returns the most recent processor log entries.
func (d *Daemon) Logs(limit int) []processor.LogEntry {
	return d.processor.Logs(limit)
}

// History returns recent run summaries, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Run, error) {
	if d.historyDB == nil {
		return nil, errors.New("history store unavailable")
	}
	return d.historyDB.Recent(ctx, limit)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		CheckpointPath: d.cfg.CheckpointPath(),
		HistoryDBPath:  d.cfg.HistoryDBPath(),
		Processor:      d.processor.Status(),
	}
}
