package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"papertriage/internal/config"
	"papertriage/internal/services/ollama"
	"papertriage/internal/services/openaichat"
)

// Quality labels recognized across the pipeline.
const (
	LabelHighQuality = "high_quality"
	LabelLowQuality  = "low_quality"
)

// Evaluator is the capability every model backend provides.
type Evaluator interface {
	// Name identifies the backend in logs and per-backend results.
	Name() string
	// EvaluateContent classifies content and returns a quality label, or ""
	// when the model response could not be parsed into one.
	EvaluateContent(ctx context.Context, content, prompt string, docID int) (string, error)
	// GenerateTitle drafts a title for the content, or "" on parse failure.
	GenerateTitle(ctx context.Context, prompt, content string) (string, error)
}

// Completer is the transport-level contract the provider wraps.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider implements Evaluator on top of a Completer.
type Provider struct {
	name      string
	completer Completer
}

// NewProvider wraps a transport client into an Evaluator.
func NewProvider(name string, completer Completer) *Provider {
	return &Provider{name: strings.TrimSpace(name), completer: completer}
}

// Name identifies the backend.
func (p *Provider) Name() string { return p.name }

// EvaluateContent sends the quality prompt plus content and extracts a label.
func (p *Provider) EvaluateContent(ctx context.Context, content, prompt string, docID int) (string, error) {
	raw, err := p.completer.Complete(ctx, prompt+"\n\n"+content)
	if err != nil {
		return "", fmt.Errorf("backend %s: evaluate document %d: %w", p.name, docID, err)
	}
	return ExtractLabel(raw), nil
}

// GenerateTitle sends the title prompt plus content and extracts a title line.
func (p *Provider) GenerateTitle(ctx context.Context, prompt, content string) (string, error) {
	raw, err := p.completer.Complete(ctx, prompt+"\n\n"+content)
	if err != nil {
		return "", fmt.Errorf("backend %s: generate title: %w", p.name, err)
	}
	return ExtractTitle(raw), nil
}

// New constructs an Evaluator for one configured backend, selecting the
// transport by the endpoint path.
func New(cfg config.Backend) (Evaluator, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("backend %s: parse url: %w", cfg.Name, err)
	}

	if strings.Contains(parsed.Path, "/chat/completions") {
		client := openaichat.NewClient(openaichat.Config{
			URL:            cfg.URL,
			Model:          cfg.Model,
			APIKey:         cfg.APIKey,
			TimeoutSeconds: cfg.TimeoutSeconds,
		})
		return NewProvider(cfg.Name, client), nil
	}

	client := ollama.NewClient(ollama.Config{
		URL:            cfg.URL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	})
	return NewProvider(cfg.Name, client), nil
}

// FromConfig constructs one Evaluator per configured backend.
func FromConfig(backends []config.Backend) ([]Evaluator, error) {
	evaluators := make([]Evaluator, 0, len(backends))
	for _, cfg := range backends {
		evaluator, err := New(cfg)
		if err != nil {
			return nil, err
		}
		evaluators = append(evaluators, evaluator)
	}
	return evaluators, nil
}
