package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"papertriage/internal/logging"
)

// Record is one document outcome. Its presence for a document id marks the
// document as processed for the current epoch.
type Record struct {
	DocumentID       int       `json:"document_id"`
	QualityResponse  string    `json:"quality_response"`
	ConsensusReached bool      `json:"consensus_reached"`
	NewTitle         string    `json:"new_title,omitempty"`
	Error            string    `json:"error,omitempty"`
	ProcessingTime   float64   `json:"processing_time"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// Summary aggregates the store for status displays.
type Summary struct {
	TotalProcessed      int       `json:"total_processed"`
	ConsensusCount      int       `json:"consensus_count"`
	ErrorCount          int       `json:"error_count"`
	TotalProcessingTime float64   `json:"total_processing_time"`
	CreatedAt           time.Time `json:"created_at"`
	LastUpdated         time.Time `json:"last_updated"`
}

type persistedStore struct {
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Documents   []Record  `json:"documents"`
}

// Store provides thread-safe access to the checkpoint file.
type Store struct {
	path   string
	logger *slog.Logger

	mu          sync.RWMutex
	createdAt   time.Time
	lastUpdated time.Time
	records     []Record
	byID        map[int]int
}

// Open loads the checkpoint store at path. Any parse failure, truncated
// content, or wrong top-level shape falls back to a fresh empty store.
func Open(path string, logger *slog.Logger) *Store {
	logger = logging.NewComponentLogger(logger, "checkpoint")

	s := &Store{path: path, logger: logger}
	if err := s.load(); err != nil {
		logger.Warn("checkpoint store unreadable, starting fresh",
			logging.String("path", path),
			logging.Error(err),
		)
		s.reset()
	}
	return s
}

func (s *Store) load() error {
	s.reset()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read checkpoint file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var persisted persistedStore
	if err := json.Unmarshal(data, &persisted); err != nil {
		return fmt.Errorf("parse checkpoint file: %w", err)
	}
	if persisted.CreatedAt.IsZero() {
		return errors.New("checkpoint file missing created_at")
	}

	s.createdAt = persisted.CreatedAt
	s.lastUpdated = persisted.LastUpdated
	if s.lastUpdated.IsZero() {
		s.lastUpdated = persisted.CreatedAt
	}
	s.records = persisted.Documents
	s.byID = make(map[int]int, len(s.records))
	for i, record := range s.records {
		if _, dup := s.byID[record.DocumentID]; !dup {
			s.byID[record.DocumentID] = i
		}
	}
	return nil
}

func (s *Store) reset() {
	now := time.Now().UTC()
	s.createdAt = now
	s.lastUpdated = now
	s.records = nil
	s.byID = make(map[int]int)
}

// Save appends one record and synchronously rewrites the store file.
func (s *Store) Save(record Record) error {
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	if _, dup := s.byID[record.DocumentID]; !dup {
		s.byID[record.DocumentID] = len(s.records) - 1
	}
	s.lastUpdated = time.Now().UTC()

	if err := s.persist(); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

// IsProcessed reports whether a record exists for the document id.
func (s *Store) IsProcessed(documentID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[documentID]
	return ok
}

// Load returns the first record for the document id.
func (s *Store) Load(documentID int) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[documentID]
	if !ok {
		return Record{}, false
	}
	return s.records[idx], true
}

// Records returns a copy of all records in append order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Clear drops every record but keeps the store identity: created_at is
// preserved, last_updated refreshed, and a valid empty store written to disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.byID = make(map[int]int)
	s.lastUpdated = time.Now().UTC()

	if err := s.persist(); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	s.logger.Info("checkpoint store cleared", logging.String("path", s.path))
	return nil
}

// Summary aggregates record counts and timings.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{
		TotalProcessed: len(s.records),
		CreatedAt:      s.createdAt,
		LastUpdated:    s.lastUpdated,
	}
	for _, record := range s.records {
		if record.ConsensusReached {
			summary.ConsensusCount++
		}
		if record.Error != "" {
			summary.ErrorCount++
		}
		summary.TotalProcessingTime += record.ProcessingTime
	}
	return summary
}

// persist writes the whole store atomically. Callers hold s.mu.
func (s *Store) persist() error {
	persisted := persistedStore{
		CreatedAt:   s.createdAt,
		LastUpdated: s.lastUpdated,
		Documents:   s.records,
	}
	if persisted.Documents == nil {
		persisted.Documents = []Record{}
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
