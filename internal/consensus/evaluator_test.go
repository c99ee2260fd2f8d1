package consensus

import (
	"context"
	"errors"
	"math"
	"testing"

	"papertriage/internal/backend"
	"papertriage/internal/logging"
)

type stubBackend struct {
	name  string
	label string
	err   error
}

func (s stubBackend) Name() string { return s.name }

func (s stubBackend) EvaluateContent(context.Context, string, string, int) (string, error) {
	return s.label, s.err
}

func (s stubBackend) GenerateTitle(context.Context, string, string) (string, error) {
	return "", nil
}

func evaluate(t *testing.T, labels ...string) Result {
	t.Helper()
	backends := make([]backend.Evaluator, 0, len(labels))
	for i, label := range labels {
		backends = append(backends, stubBackend{name: string(rune('a' + i)), label: label})
	}
	return New(backends, logging.NewNop()).Evaluate(context.Background(), "content", "prompt", 1)
}

func TestMajorityVerdict(t *testing.T) {
	result := evaluate(t, backend.LabelHighQuality, backend.LabelHighQuality, backend.LabelLowQuality)
	if !result.ConsensusReached {
		t.Fatal("expected consensus")
	}
	if result.Label != backend.LabelHighQuality {
		t.Fatalf("unexpected verdict %q", result.Label)
	}
	if math.Abs(result.Confidence-2.0/3.0) > 1e-9 {
		t.Fatalf("unexpected confidence %v", result.Confidence)
	}
	if len(result.PerBackend) != 3 {
		t.Fatalf("expected 3 per-backend results, got %d", len(result.PerBackend))
	}
}

func TestTieYieldsNoConsensus(t *testing.T) {
	result := evaluate(t, backend.LabelHighQuality, backend.LabelLowQuality)
	if result.ConsensusReached {
		t.Fatal("expected no consensus on tie")
	}
	if result.Label != "" {
		t.Fatalf("expected empty verdict, got %q", result.Label)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", result.Confidence)
	}
}

func TestAllEmptyYieldsNoConsensus(t *testing.T) {
	result := evaluate(t, "", "")
	if result.ConsensusReached || result.Label != "" {
		t.Fatalf("expected empty no-consensus result, got %+v", result)
	}
}

func TestEmptyVotesDiscardedFromTally(t *testing.T) {
	result := evaluate(t, "", backend.LabelLowQuality, backend.LabelLowQuality, backend.LabelHighQuality)
	if !result.ConsensusReached || result.Label != backend.LabelLowQuality {
		t.Fatalf("expected low_quality consensus, got %+v", result)
	}
	if math.Abs(result.Confidence-2.0/3.0) > 1e-9 {
		t.Fatalf("expected confidence over non-empty votes only, got %v", result.Confidence)
	}
}

func TestSingleBackendConsensus(t *testing.T) {
	result := evaluate(t, backend.LabelHighQuality)
	if !result.ConsensusReached || result.Label != backend.LabelHighQuality {
		t.Fatalf("expected trivial consensus, got %+v", result)
	}
	if result.Confidence != 1 {
		t.Fatalf("expected confidence 1, got %v", result.Confidence)
	}
}

func TestBackendErrorCountsAsEmpty(t *testing.T) {
	backends := []backend.Evaluator{
		stubBackend{name: "ok", label: backend.LabelHighQuality},
		stubBackend{name: "down", err: errors.New("connection refused")},
	}
	result := New(backends, logging.NewNop()).Evaluate(context.Background(), "content", "prompt", 9)
	if !result.ConsensusReached || result.Label != backend.LabelHighQuality {
		t.Fatalf("expected surviving backend to decide, got %+v", result)
	}
	if result.PerBackend[1].Label != "" {
		t.Fatalf("expected failing backend to vote empty, got %q", result.PerBackend[1].Label)
	}
}
