package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"papertriage/internal/backend"
	"papertriage/internal/checkpoint"
	"papertriage/internal/history"
	"papertriage/internal/logging"
	"papertriage/internal/paperless"
	"papertriage/internal/textutil"
)

const errorDetailLimit = 200

var errRunActive = errors.New("a processing run is already active")

// Run executes one full batch: fetch the anti-forgery token, list candidate
// documents, then drive each document through evaluation, tagging, and
// checkpointing. Setup failures abort before any document is touched;
// per-document failures are recorded and the batch continues.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.begin(); err != nil {
		return err
	}

	startedAt := time.Now().UTC()
	stopReason := "completed"
	defer func() {
		p.finish(ctx, startedAt, stopReason)
	}()

	csrfToken, err := p.archive.FetchCSRFToken(ctx)
	if err != nil {
		stopReason = "failed"
		p.setLastError(err)
		return fmt.Errorf("fetch csrf token: %w", err)
	}

	filter := paperless.ListFilter{UntaggedOnly: p.cfg.Tags.IgnoreAlreadyTagged}
	documents, err := p.archive.FetchDocuments(ctx, p.cfg.Paperless.MaxDocuments, p.cfg.Paperless.PageSize, filter)
	if err != nil {
		stopReason = "failed"
		p.setLastError(err)
		return fmt.Errorf("fetch documents: %w", err)
	}

	if p.cfg.Tags.IgnoreAlreadyTagged {
		untagged := documents[:0]
		for _, doc := range documents {
			if len(doc.Tags) > 0 {
				continue
			}
			untagged = append(untagged, doc)
		}
		if excluded := len(documents) - len(untagged); excluded > 0 {
			p.logf("debug", "excluded %d already tagged documents", excluded)
		}
		documents = untagged
	}

	p.mu.Lock()
	p.stats.Total += len(documents)
	p.mu.Unlock()
	p.logf("info", "run %s started with %d documents", p.shortRunID(), len(documents))

	for i, doc := range documents {
		if reason, halted := p.waitAtBoundary(ctx); halted {
			stopReason = reason
			p.logf("info", "run halted after %d of %d documents (%s)", i, len(documents), reason)
			return nil
		}

		p.setCurrent(doc)

		if p.checkpoints.IsProcessed(doc.ID) {
			p.bump(OutcomeSkipped)
			p.logf("debug", "document %d already checkpointed, skipping", doc.ID)
			continue
		}

		outcome := p.processDocument(ctx, doc, csrfToken)
		p.bump(outcome)
		p.publish(Progress{
			RunID:      p.runID,
			DocumentID: doc.ID,
			Title:      doc.Title,
			Outcome:    outcome,
			Stats:      p.Stats(),
			Timestamp:  time.Now().UTC(),
		})

		if p.delay > 0 && i < len(documents)-1 {
			p.sleep(p.delay)
		}
	}

	return nil
}

// processDocument runs one document through the state machine and returns its
// terminal outcome. Panics and errors are contained here so a bad document
// never takes down the batch.
func (p *Processor) processDocument(ctx context.Context, doc paperless.Document, csrfToken string) (outcome Outcome) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeError
			p.recordError(doc, fmt.Errorf("panic: %v", r), started)
		}
	}()

	if strings.TrimSpace(doc.Content) == "" {
		if err := p.archive.Tag(ctx, doc.ID, p.cfg.Tags.LowQualityTagID, csrfToken); err != nil {
			p.recordError(doc, fmt.Errorf("tag empty document: %w", err), started)
			return OutcomeError
		}
		p.logf("info", "document %d has no extracted text, tagged low quality", doc.ID)
		return OutcomeSkipped
	}

	result := p.evaluator.Evaluate(ctx, doc.Content, p.cfg.Processing.QualityPrompt, doc.ID)

	record := checkpoint.Record{
		DocumentID:       doc.ID,
		QualityResponse:  result.Label,
		ConsensusReached: result.ConsensusReached,
		ProcessedAt:      time.Now().UTC(),
	}

	if !result.ConsensusReached {
		p.logf("warn", "document %d: backends did not agree, leaving untouched", doc.ID)
		outcome = OutcomeNoConsensus
	} else {
		tagID := p.cfg.Tags.LowQualityTagID
		if result.Label == backend.LabelHighQuality {
			tagID = p.cfg.Tags.HighQualityTagID
		}
		if err := p.archive.Tag(ctx, doc.ID, tagID, csrfToken); err != nil {
			p.recordError(doc, fmt.Errorf("tag document: %w", err), started)
			return OutcomeError
		}
		p.logf("info", "document %d tagged %s (confidence %.2f)", doc.ID, result.Label, result.Confidence)

		if result.Label == backend.LabelHighQuality {
			outcome = OutcomeHighQuality
			if p.cfg.Processing.RenameHighQuality {
				record.NewTitle = p.renameDocument(ctx, doc, csrfToken)
			}
		} else {
			outcome = OutcomeLowQuality
		}
	}

	record.ProcessingTime = time.Since(started).Seconds()
	if err := p.checkpoints.Save(record); err != nil {
		p.logf("error", "document %d: save checkpoint: %v", doc.ID, err)
	}
	return outcome
}

// renameDocument generates and applies a new title for a high quality
// document. Rename problems are warnings, never document failures: the
// quality verdict already stands. Returns the applied title, or empty when
// no rename happened.
func (p *Processor) renameDocument(ctx context.Context, doc paperless.Document, csrfToken string) string {
	detail, err := p.archive.GetDocument(ctx, doc.ID)
	if err != nil {
		p.logf("warn", "document %d: fetch detail for rename: %v", doc.ID, err)
		detail = doc
	}

	title := p.generateTitle(ctx, detail)
	if title == "" {
		p.logf("warn", "document %d: no usable title from any backend, keeping %q", doc.ID, detail.Title)
		return ""
	}
	if title == detail.Title {
		return ""
	}

	verified, err := p.archive.UpdateTitle(ctx, doc.ID, title, csrfToken)
	if err != nil {
		p.logf("warn", "document %d: update title: %v", doc.ID, err)
		return ""
	}
	if !verified {
		p.logf("warn", "document %d: title update not reflected by archive, wanted %q", doc.ID, title)
		return ""
	}

	p.logf("info", "document %d renamed to %q", doc.ID, title)
	return title
}

// generateTitle asks the configured backends in order and takes the first
// non-empty sanitized title.
func (p *Processor) generateTitle(ctx context.Context, doc paperless.Document) string {
	excerpt := doc.Content
	if limit := p.cfg.Processing.TitlePromptChars; limit > 0 {
		runes := []rune(excerpt)
		if len(runes) > limit {
			excerpt = string(runes[:limit])
		}
	}

	for _, b := range p.backends {
		raw, err := b.GenerateTitle(ctx, p.cfg.Processing.TitlePrompt, excerpt)
		if err != nil {
			p.logger.Warn("title generation failed",
				logging.String("backend", b.Name()),
				logging.Int("document_id", doc.ID),
				logging.Error(err),
			)
			continue
		}
		title := textutil.TitleCase(textutil.SanitizeTitle(raw, p.cfg.Processing.TitleMaxLength))
		if title != "" {
			return title
		}
	}
	return ""
}

func (p *Processor) recordError(doc paperless.Document, err error, started time.Time) {
	detail := textutil.TruncateError(err.Error(), errorDetailLimit)
	p.logf("error", "document %d: %s", doc.ID, detail)
	p.setLastError(err)

	record := checkpoint.Record{
		DocumentID:     doc.ID,
		Error:          detail,
		ProcessingTime: time.Since(started).Seconds(),
		ProcessedAt:    time.Now().UTC(),
	}
	if saveErr := p.checkpoints.Save(record); saveErr != nil {
		p.logf("error", "document %d: save checkpoint: %v", doc.ID, saveErr)
	}
}

// waitAtBoundary blocks while paused and reports whether the run should halt.
func (p *Processor) waitAtBoundary(ctx context.Context) (string, bool) {
	for {
		p.mu.Lock()
		if p.stopped {
			p.mu.Unlock()
			return "stopped", true
		}
		paused := p.paused
		resumeCh := p.resumeCh
		p.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return "canceled", true
		}
		if !paused {
			return "", false
		}

		select {
		case <-resumeCh:
		case <-ctx.Done():
			return "canceled", true
		}
	}
}

func (p *Processor) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return errRunActive
	}
	p.state = StateRunning
	p.runID = uuid.NewString()
	p.stopped = false
	p.paused = false
	p.resumeCh = make(chan struct{})
	p.lastErr = ""
	return nil
}

func (p *Processor) finish(ctx context.Context, startedAt time.Time, stopReason string) {
	p.mu.Lock()
	runID := p.runID
	stats := p.stats
	p.state = StateIdle
	p.currentID = 0
	p.currentDoc = ""
	p.mu.Unlock()

	p.logf("info", "run %s finished (%s): %d processed, %d high, %d low, %d no consensus, %d errors, %d skipped",
		shortID(runID), stopReason, stats.Processed, stats.HighQuality, stats.LowQuality,
		stats.NoConsensus, stats.Errors, stats.Skipped)

	if p.recorder == nil {
		return
	}
	run := history.Run{
		ID:          runID,
		StartedAt:   startedAt,
		FinishedAt:  time.Now().UTC(),
		Total:       stats.Total,
		Processed:   stats.Processed,
		HighQuality: stats.HighQuality,
		LowQuality:  stats.LowQuality,
		NoConsensus: stats.NoConsensus,
		Errors:      stats.Errors,
		Skipped:     stats.Skipped,
		StopReason:  stopReason,
	}
	if err := p.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("record run history", logging.Error(err))
	}
}

func (p *Processor) setCurrent(doc paperless.Document) {
	p.mu.Lock()
	p.currentID = doc.ID
	p.currentDoc = doc.Title
	p.mu.Unlock()
}

func (p *Processor) setLastError(err error) {
	p.mu.Lock()
	p.lastErr = textutil.TruncateError(err.Error(), errorDetailLimit)
	p.mu.Unlock()
}

func (p *Processor) bump(outcome Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if outcome == OutcomeSkipped {
		p.stats.Skipped++
		return
	}
	p.stats.Processed++
	switch outcome {
	case OutcomeHighQuality:
		p.stats.HighQuality++
	case OutcomeLowQuality:
		p.stats.LowQuality++
	case OutcomeNoConsensus:
		p.stats.NoConsensus++
	case OutcomeError:
		p.stats.Errors++
	}
}

func (p *Processor) sleep(d time.Duration) {
	if p.sleeper != nil {
		p.sleeper(d)
		return
	}
	time.Sleep(d)
}

func (p *Processor) shortRunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return shortID(p.runID)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
