package consensus

import (
	"context"
	"log/slog"

	"papertriage/internal/backend"
	"papertriage/internal/logging"
)

// BackendResult records one backend's vote for a document.
type BackendResult struct {
	Backend string `json:"backend"`
	Label   string `json:"label"`
}

// Result is the aggregated verdict for one document.
type Result struct {
	PerBackend       []BackendResult `json:"per_backend"`
	Label            string          `json:"label"`
	ConsensusReached bool            `json:"consensus_reached"`
	// Confidence is the share of non-empty votes agreeing with the verdict.
	// Only meaningful when ConsensusReached is true.
	Confidence float64 `json:"confidence"`
}

// Evaluator queries every configured backend and tallies the votes.
type Evaluator struct {
	backends []backend.Evaluator
	logger   *slog.Logger
}

// New constructs an Evaluator over the supplied backends.
func New(backends []backend.Evaluator, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		backends: backends,
		logger:   logging.NewComponentLogger(logger, "consensus"),
	}
}

// Evaluate asks each backend for a verdict independently and aggregates by
// plain majority. A failing backend contributes an empty label and is not
// retried here. Ties, including zero non-empty votes, yield no consensus.
func (e *Evaluator) Evaluate(ctx context.Context, content, prompt string, docID int) Result {
	result := Result{PerBackend: make([]BackendResult, 0, len(e.backends))}

	for _, b := range e.backends {
		label, err := b.EvaluateContent(ctx, content, prompt, docID)
		if err != nil {
			e.logger.Warn("backend evaluation failed",
				logging.String("backend", b.Name()),
				logging.Int("document_id", docID),
				logging.Error(err),
			)
			label = ""
		}
		result.PerBackend = append(result.PerBackend, BackendResult{Backend: b.Name(), Label: label})
	}

	tally := map[string]int{}
	voted := 0
	for _, vote := range result.PerBackend {
		if vote.Label == "" {
			continue
		}
		tally[vote.Label]++
		voted++
	}
	if voted == 0 {
		return result
	}

	best := 0
	for _, count := range tally {
		if count > best {
			best = count
		}
	}
	var leaders []string
	for label, count := range tally {
		if count == best {
			leaders = append(leaders, label)
		}
	}
	if len(leaders) != 1 {
		return result
	}

	result.Label = leaders[0]
	result.ConsensusReached = true
	result.Confidence = float64(best) / float64(voted)
	return result
}
