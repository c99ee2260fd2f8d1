package ipc

import (
	"time"

	"papertriage/internal/checkpoint"
	"papertriage/internal/processor"
)

// StartRequest triggers a processing run.
type StartRequest struct{}

// StartResponse indicates whether a run was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// PauseResumeRequest toggles the pause state of the active run.
type PauseResumeRequest struct{}

// PauseResumeResponse reports the resulting pause state.
type PauseResumeResponse struct {
	Paused bool `json:"paused"`
}

// StopRequest halts the active run at the next document boundary.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ResetStatsRequest zeroes the run counters.
type ResetStatsRequest struct{}

// ResetStatsResponse acknowledges the reset.
type ResetStatsResponse struct {
	Reset bool `json:"reset"`
}

// ClearCheckpointsRequest drops all checkpoint records.
type ClearCheckpointsRequest struct{}

// ClearCheckpointsResponse reports the number of removed records.
type ClearCheckpointsResponse struct {
	Removed int `json:"removed"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/processor status information.
type StatusResponse struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	State          string             `json:"state"`
	RunID          string             `json:"run_id"`
	CurrentID      int                `json:"current_id"`
	CurrentDoc     string             `json:"current_doc"`
	LastError      string             `json:"last_error"`
	Stats          processor.Stats    `json:"stats"`
	Checkpoint     checkpoint.Summary `json:"checkpoint"`
	CheckpointPath string             `json:"checkpoint_path"`
	HistoryDBPath  string             `json:"history_db_path"`
	LockPath       string             `json:"lock_path"`
}

// LogsRequest fetches recent log entries.
type LogsRequest struct {
	Limit int `json:"limit"`
}

// LogsResponse returns buffered log entries, oldest first.
type LogsResponse struct {
	Entries []processor.LogEntry `json:"entries"`
}

// HistoryRequest fetches recent run summaries.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// RunSummary is one recorded processing run.
type RunSummary struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	HighQuality int       `json:"high_quality"`
	LowQuality  int       `json:"low_quality"`
	NoConsensus int       `json:"no_consensus"`
	Errors      int       `json:"errors"`
	Skipped     int       `json:"skipped"`
	StopReason  string    `json:"stop_reason"`
}

// HistoryResponse returns run summaries, newest first.
type HistoryResponse struct {
	Runs []RunSummary `json:"runs"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges the shutdown request.
type ShutdownResponse struct {
	ShuttingDown bool `json:"shutting_down"`
}
