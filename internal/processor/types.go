package processor

import (
	"context"
	"time"

	"papertriage/internal/checkpoint"
	"papertriage/internal/history"
	"papertriage/internal/paperless"
)

// State describes the run lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateStopping State = "stopping"
)

// Outcome is the terminal state of one document's pass.
type Outcome string

const (
	OutcomeHighQuality Outcome = "high_quality"
	OutcomeLowQuality  Outcome = "low_quality"
	OutcomeNoConsensus Outcome = "no_consensus"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeError       Outcome = "error"
)

// Stats counts per-run outcomes. Counters reset only on explicit action.
type Stats struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	HighQuality int `json:"high_quality"`
	LowQuality  int `json:"low_quality"`
	NoConsensus int `json:"no_consensus"`
	Errors      int `json:"errors"`
	Skipped     int `json:"skipped"`
}

// Progress is one per-document progress event.
type Progress struct {
	RunID      string    `json:"run_id"`
	DocumentID int       `json:"document_id"`
	Title      string    `json:"title"`
	Outcome    Outcome   `json:"outcome"`
	Stats      Stats     `json:"stats"`
	Timestamp  time.Time `json:"timestamp"`
}

// Status is a consistent snapshot of the processor for control surfaces.
type Status struct {
	State      State              `json:"state"`
	RunID      string             `json:"run_id"`
	Stats      Stats              `json:"stats"`
	CurrentID  int                `json:"current_id"`
	CurrentDoc string             `json:"current_doc"`
	LastError  string             `json:"last_error"`
	Checkpoint checkpoint.Summary `json:"checkpoint"`
}

// LogEntry is one line of the in-memory log buffer.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Archive is the capability surface consumed from the document archive.
type Archive interface {
	FetchCSRFToken(ctx context.Context) (string, error)
	FetchDocuments(ctx context.Context, max, pageSize int, filter paperless.ListFilter) ([]paperless.Document, error)
	GetDocument(ctx context.Context, id int) (paperless.Document, error)
	Tag(ctx context.Context, id, tagID int, csrfToken string) error
	UpdateTitle(ctx context.Context, id int, title, csrfToken string) (bool, error)
}

// RunRecorder persists a summary row per completed run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run history.Run) error
}
