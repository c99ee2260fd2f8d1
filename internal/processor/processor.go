package processor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"papertriage/internal/backend"
	"papertriage/internal/checkpoint"
	"papertriage/internal/config"
	"papertriage/internal/consensus"
	"papertriage/internal/logging"
)

const logBufferSize = 500

// Processor orchestrates evaluation, tagging, renaming, and checkpointing.
type Processor struct {
	cfg         *config.Config
	archive     Archive
	evaluator   *consensus.Evaluator
	backends    []backend.Evaluator
	checkpoints *checkpoint.Store
	recorder    RunRecorder
	logger      *slog.Logger

	delay   time.Duration
	sleeper func(time.Duration)

	mu          sync.Mutex
	state       State
	runID       string
	stats       Stats
	currentID   int
	currentDoc  string
	lastErr     string
	paused      bool
	resumeCh    chan struct{}
	stopped     bool
	logs        []LogEntry
	subscribers []chan Progress
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithRunRecorder persists run summaries when set.
func WithRunRecorder(recorder RunRecorder) Option {
	return func(p *Processor) {
		p.recorder = recorder
	}
}

// WithSleeper overrides the courtesy delay sleep (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Processor) {
		p.sleeper = sleeper
	}
}

// New constructs a Processor.
func New(cfg *config.Config, archive Archive, backends []backend.Evaluator, checkpoints *checkpoint.Store, logger *slog.Logger, opts ...Option) *Processor {
	logger = logging.NewComponentLogger(logger, "processor")
	p := &Processor{
		cfg:         cfg,
		archive:     archive,
		evaluator:   consensus.New(backends, logger),
		backends:    backends,
		checkpoints: checkpoints,
		logger:      logger,
		delay:       time.Duration(cfg.Processing.DocumentDelayMS) * time.Millisecond,
		state:       StateIdle,
		resumeCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Checkpoints exposes the checkpoint store to control surfaces.
func (p *Processor) Checkpoints() *checkpoint.Store {
	return p.checkpoints
}

// Status returns a consistent snapshot of processor state.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:      p.state,
		RunID:      p.runID,
		Stats:      p.stats,
		CurrentID:  p.currentID,
		CurrentDoc: p.currentDoc,
		LastError:  p.lastErr,
		Checkpoint: p.checkpoints.Summary(),
	}
}

// Stats returns the current run counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// ResetStats zeroes the per-run counters.
func (p *Processor) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{}
	p.appendLogLocked("info", "stats reset")
}

// Pause requests a pause at the next document boundary.
func (p *Processor) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.state == StateIdle {
		return
	}
	p.paused = true
	p.resumeCh = make(chan struct{})
	p.state = StatePaused
	p.appendLogLocked("info", "pause requested")
}

// Resume releases a paused run.
func (p *Processor) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	close(p.resumeCh)
	if p.state == StatePaused {
		p.state = StateRunning
	}
	p.appendLogLocked("info", "resumed")
}

// Paused reports whether a pause is in effect.
func (p *Processor) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Stop requests a stop before the next document. Checkpoints already written
// are retained.
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	p.stopped = true
	p.state = StateStopping
	if p.paused {
		p.paused = false
		close(p.resumeCh)
	}
	p.appendLogLocked("info", "stop requested")
}

// Subscribe registers a progress listener. Events are dropped rather than
// blocking the processing loop when a listener falls behind.
func (p *Processor) Subscribe() <-chan Progress {
	ch := make(chan Progress, 16)
	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.mu.Unlock()
	return ch
}

// Logs returns a copy of the most recent log entries.
func (p *Processor) Logs(limit int) []LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.logs
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]LogEntry, len(entries))
	copy(out, entries)
	return out
}

func (p *Processor) publish(event Progress) {
	p.mu.Lock()
	subscribers := make([]chan Progress, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (p *Processor) logf(level, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	switch level {
	case "warn":
		p.logger.Warn(message)
	case "error":
		p.logger.Error(message)
	default:
		p.logger.Info(message)
	}

	p.mu.Lock()
	p.appendLogLocked(level, message)
	p.mu.Unlock()
}

func (p *Processor) appendLogLocked(level, message string) {
	p.logs = append(p.logs, LogEntry{Time: time.Now().UTC(), Level: level, Message: message})
	if len(p.logs) > logBufferSize {
		p.logs = p.logs[len(p.logs)-logBufferSize:]
	}
}
