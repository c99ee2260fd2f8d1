package processor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"papertriage/internal/backend"
	"papertriage/internal/checkpoint"
	"papertriage/internal/config"
	"papertriage/internal/history"
	"papertriage/internal/logging"
	"papertriage/internal/paperless"
)

type stubBackend struct {
	name    string
	label   string
	title   string
	evalErr error
}

func (s stubBackend) Name() string { return s.name }

func (s stubBackend) EvaluateContent(context.Context, string, string, int) (string, error) {
	return s.label, s.evalErr
}

func (s stubBackend) GenerateTitle(context.Context, string, string) (string, error) {
	return s.title, nil
}

type fakeArchive struct {
	mu          sync.Mutex
	docs        []paperless.Document
	details     map[int]paperless.Document
	csrfErr     error
	fetchErr    error
	tagErr      error
	titleErr    error
	verifyFails bool
	tagged      map[int][]int
	titles      map[int]string
	lastFilter  paperless.ListFilter
	onTag       func(id int)
}

func newFakeArchive(docs ...paperless.Document) *fakeArchive {
	return &fakeArchive{
		docs:    docs,
		details: map[int]paperless.Document{},
		tagged:  map[int][]int{},
		titles:  map[int]string{},
	}
}

func (f *fakeArchive) FetchCSRFToken(context.Context) (string, error) {
	if f.csrfErr != nil {
		return "", f.csrfErr
	}
	return "csrf-token", nil
}

func (f *fakeArchive) FetchDocuments(_ context.Context, max, _ int, filter paperless.ListFilter) ([]paperless.Document, error) {
	f.mu.Lock()
	f.lastFilter = filter
	f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	docs := f.docs
	if max > 0 && len(docs) > max {
		docs = docs[:max]
	}
	return docs, nil
}

func (f *fakeArchive) GetDocument(_ context.Context, id int) (paperless.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if detail, ok := f.details[id]; ok {
		return detail, nil
	}
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return paperless.Document{}, errors.New("document not found")
}

func (f *fakeArchive) Tag(_ context.Context, id, tagID int, csrfToken string) error {
	if csrfToken == "" {
		return errors.New("missing csrf token")
	}
	if f.tagErr != nil {
		return f.tagErr
	}
	f.mu.Lock()
	f.tagged[id] = append(f.tagged[id], tagID)
	f.mu.Unlock()
	if f.onTag != nil {
		f.onTag(id)
	}
	return nil
}

func (f *fakeArchive) UpdateTitle(_ context.Context, id int, title, _ string) (bool, error) {
	if f.titleErr != nil {
		return false, f.titleErr
	}
	f.mu.Lock()
	f.titles[id] = title
	f.mu.Unlock()
	return !f.verifyFails, nil
}

func (f *fakeArchive) tagsFor(id int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tagged[id]
}

const (
	lowTag  = 10
	highTag = 11
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Tags.LowQualityTagID = lowTag
	cfg.Tags.HighQualityTagID = highTag
	cfg.Tags.IgnoreAlreadyTagged = true
	cfg.Processing.DocumentDelayMS = 0
	return &cfg
}

func newTestProcessor(t *testing.T, cfg *config.Config, archive Archive, backends []backend.Evaluator, opts ...Option) *Processor {
	t.Helper()
	store := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints.json"), logging.NewNop())
	opts = append(opts, WithSleeper(func(time.Duration) {}))
	return New(cfg, archive, backends, store, logging.NewNop(), opts...)
}

func doc(id int, title, content string) paperless.Document {
	return paperless.Document{ID: id, Title: title, Content: content}
}

func TestRunTagsByVerdict(t *testing.T) {
	archive := newFakeArchive(
		doc(1, "Scan 1", "a well written report"),
		doc(2, "Scan 2", "garbled ocr noise"),
	)
	high := []backend.Evaluator{
		stubBackend{name: "a", label: backend.LabelHighQuality},
		stubBackend{name: "b", label: backend.LabelHighQuality},
	}
	p := newTestProcessor(t, testConfig(), archive, high)

	// Both backends vote high quality, so both documents land on the high tag.
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, id := range []int{1, 2} {
		tags := archive.tagsFor(id)
		if len(tags) != 1 || tags[0] != highTag {
			t.Fatalf("document %d tags = %v, want [%d]", id, tags, highTag)
		}
	}

	stats := p.Stats()
	if stats.Total != 2 || stats.Processed != 2 || stats.HighQuality != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	records := p.Checkpoints().Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 checkpoint records, got %d", len(records))
	}
	for _, record := range records {
		if !record.ConsensusReached || record.QualityResponse != backend.LabelHighQuality {
			t.Fatalf("unexpected record %+v", record)
		}
	}
}

func TestRunLowQualityVerdict(t *testing.T) {
	archive := newFakeArchive(doc(7, "Scan", "text"))
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if tags := archive.tagsFor(7); len(tags) != 1 || tags[0] != lowTag {
		t.Fatalf("document tags = %v, want [%d]", tags, lowTag)
	}
	if stats := p.Stats(); stats.LowQuality != 1 || stats.Processed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRunEmptyContentTaggedLowAndSkipped(t *testing.T) {
	archive := newFakeArchive(doc(3, "Blank scan", "   \n\t"))
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelHighQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if tags := archive.tagsFor(3); len(tags) != 1 || tags[0] != lowTag {
		t.Fatalf("document tags = %v, want [%d]", tags, lowTag)
	}
	stats := p.Stats()
	if stats.Skipped != 1 || stats.Processed != 0 || stats.Errors != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if records := p.Checkpoints().Records(); len(records) != 0 {
		t.Fatalf("expected no checkpoint records, got %d", len(records))
	}
}

func TestRunNoConsensusLeavesUntouched(t *testing.T) {
	archive := newFakeArchive(doc(4, "Scan", "ambiguous text"))
	split := []backend.Evaluator{
		stubBackend{name: "a", label: backend.LabelHighQuality},
		stubBackend{name: "b", label: backend.LabelLowQuality},
	}
	p := newTestProcessor(t, testConfig(), archive, split)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if tags := archive.tagsFor(4); len(tags) != 0 {
		t.Fatalf("expected no tags on tie, got %v", tags)
	}
	if stats := p.Stats(); stats.NoConsensus != 1 || stats.Errors != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	record, ok := p.Checkpoints().Load(4)
	if !ok {
		t.Fatal("expected checkpoint record")
	}
	if record.ConsensusReached || record.QualityResponse != "" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestRunResumeSkipsCheckpointed(t *testing.T) {
	var docs []paperless.Document
	for id := 1; id <= 5; id++ {
		docs = append(docs, doc(id, "Scan", "text"))
	}
	archive := newFakeArchive(docs...)
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	for id := 1; id <= 3; id++ {
		record := checkpoint.Record{
			DocumentID:       id,
			QualityResponse:  backend.LabelLowQuality,
			ConsensusReached: true,
			ProcessedAt:      time.Now().UTC(),
		}
		if err := p.Checkpoints().Save(record); err != nil {
			t.Fatalf("seed checkpoint: %v", err)
		}
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	for id := 1; id <= 3; id++ {
		if tags := archive.tagsFor(id); len(tags) != 0 {
			t.Fatalf("document %d should have been skipped, tags %v", id, tags)
		}
	}
	for id := 4; id <= 5; id++ {
		if tags := archive.tagsFor(id); len(tags) != 1 {
			t.Fatalf("document %d should have been tagged, tags %v", id, tags)
		}
	}

	stats := p.Stats()
	if stats.Skipped != 3 || stats.Processed != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if records := p.Checkpoints().Records(); len(records) != 5 {
		t.Fatalf("expected 5 checkpoint records, got %d", len(records))
	}
}

func TestRunExcludesAlreadyTaggedDocuments(t *testing.T) {
	tagged := doc(2, "Receipt", "already filed elsewhere")
	tagged.Tags = []int{99}
	archive := newFakeArchive(doc(1, "Scan", "fresh text"), tagged)
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Any pre-existing tag keeps a document out of the batch, not just the
	// quality tags.
	if !archive.lastFilter.UntaggedOnly {
		t.Fatal("expected untagged-only listing filter")
	}
	if tags := archive.tagsFor(2); len(tags) != 0 {
		t.Fatalf("tagged document should have been excluded, tags %v", tags)
	}
	if _, ok := p.Checkpoints().Load(2); ok {
		t.Fatal("excluded document should not be checkpointed")
	}
	if stats := p.Stats(); stats.Total != 1 || stats.Processed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRunPauseBlocksAtBoundary(t *testing.T) {
	archive := newFakeArchive(
		doc(1, "Scan 1", "text one"),
		doc(2, "Scan 2", "text two"),
	)
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)
	archive.onTag = func(id int) {
		if id == 1 {
			p.Pause()
		}
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	deadline := time.After(5 * time.Second)
	for p.Status().State != StatePaused || p.Stats().Processed != 1 {
		select {
		case err := <-done:
			t.Fatalf("run finished instead of pausing: %v", err)
		case <-deadline:
			t.Fatal("run never paused")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The completed document is counted; the next one waits at the boundary.
	if tags := archive.tagsFor(2); len(tags) != 0 {
		t.Fatalf("document 2 should not run while paused, tags %v", tags)
	}

	p.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run after resume: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete after resume")
	}

	if tags := archive.tagsFor(2); len(tags) != 1 || tags[0] != lowTag {
		t.Fatalf("document 2 tags = %v, want [%d]", tags, lowTag)
	}
	if stats := p.Stats(); stats.Processed != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if p.Status().State != StateIdle {
		t.Fatalf("expected idle state, got %q", p.Status().State)
	}
}

func TestRunRenameAppliesGeneratedTitle(t *testing.T) {
	archive := newFakeArchive(doc(9, "scan_0042.pdf", "quarterly report"))
	backends := []backend.Evaluator{
		stubBackend{name: "a", label: backend.LabelHighQuality, title: "Quarterly Report 2025"},
	}
	cfg := testConfig()
	cfg.Processing.RenameHighQuality = true
	p := newTestProcessor(t, cfg, archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := archive.titles[9]; got != "Quarterly Report 2025" {
		t.Fatalf("unexpected title %q", got)
	}
	record, ok := p.Checkpoints().Load(9)
	if !ok {
		t.Fatal("expected checkpoint record")
	}
	if record.NewTitle != "Quarterly Report 2025" {
		t.Fatalf("unexpected record title %q", record.NewTitle)
	}
}

type recordingBackend struct {
	label string
	title string
	seen  *string
}

func (r recordingBackend) Name() string { return "recording" }

func (r recordingBackend) EvaluateContent(context.Context, string, string, int) (string, error) {
	return r.label, nil
}

func (r recordingBackend) GenerateTitle(_ context.Context, _ string, content string) (string, error) {
	*r.seen = content
	return r.title, nil
}

func TestRunRenameUsesDocumentDetail(t *testing.T) {
	archive := newFakeArchive(doc(9, "scan_0042.pdf", "listing excerpt"))
	archive.details[9] = doc(9, "scan_0042.pdf", "full extracted body of the report")

	var seen string
	backends := []backend.Evaluator{
		recordingBackend{label: backend.LabelHighQuality, title: "Annual Report", seen: &seen},
	}
	cfg := testConfig()
	cfg.Processing.RenameHighQuality = true
	p := newTestProcessor(t, cfg, archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Title generation works from the re-fetched detail, not the listing row.
	if seen != "full extracted body of the report" {
		t.Fatalf("title prompt used %q", seen)
	}
	if got := archive.titles[9]; got != "Annual Report" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestRunRenameTitleCasesGeneratedTitle(t *testing.T) {
	archive := newFakeArchive(doc(9, "scan_0042.pdf", "quarterly report"))
	backends := []backend.Evaluator{
		stubBackend{name: "a", label: backend.LabelHighQuality, title: "quarterly report march"},
	}
	cfg := testConfig()
	cfg.Processing.RenameHighQuality = true
	p := newTestProcessor(t, cfg, archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := archive.titles[9]; got != "Quarterly Report March" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestRunTitleVerifyMismatchStaysHighQuality(t *testing.T) {
	archive := newFakeArchive(doc(9, "scan_0042.pdf", "quarterly report"))
	archive.verifyFails = true
	backends := []backend.Evaluator{
		stubBackend{name: "a", label: backend.LabelHighQuality, title: "Quarterly Report 2025"},
	}
	cfg := testConfig()
	cfg.Processing.RenameHighQuality = true
	p := newTestProcessor(t, cfg, archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// A rename the archive did not reflect is a warning, not a failure.
	stats := p.Stats()
	if stats.HighQuality != 1 || stats.Errors != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	record, ok := p.Checkpoints().Load(9)
	if !ok {
		t.Fatal("expected checkpoint record")
	}
	if record.NewTitle != "" {
		t.Fatalf("unverified title should not be recorded, got %q", record.NewTitle)
	}
}

func TestRunTagFailureContinuesBatch(t *testing.T) {
	archive := newFakeArchive(
		doc(1, "Scan 1", "text one"),
		doc(2, "Scan 2", "text two"),
	)
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}

	// Fail the first tag call only.
	calls := 0
	wrapped := &countingArchive{fakeArchive: archive, beforeTag: func() error {
		calls++
		if calls == 1 {
			return errors.New("tag exploded")
		}
		return nil
	}}
	p := newTestProcessor(t, testConfig(), wrapped, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	stats := p.Stats()
	if stats.Errors != 1 || stats.LowQuality != 1 || stats.Processed != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	record, ok := p.Checkpoints().Load(1)
	if !ok {
		t.Fatal("expected checkpoint record for failed document")
	}
	if record.Error == "" || !strings.Contains(record.Error, "tag exploded") {
		t.Fatalf("unexpected record error %q", record.Error)
	}
	if record.ConsensusReached {
		t.Fatal("error record should not claim consensus")
	}
}

type countingArchive struct {
	*fakeArchive
	beforeTag func() error
}

func (c *countingArchive) Tag(ctx context.Context, id, tagID int, csrfToken string) error {
	if err := c.beforeTag(); err != nil {
		return err
	}
	return c.fakeArchive.Tag(ctx, id, tagID, csrfToken)
}

func TestRunSetupFailureAbortsBeforeDocuments(t *testing.T) {
	archive := newFakeArchive(doc(1, "Scan", "text"))
	archive.csrfErr = errors.New("forbidden")
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail")
	}
	if tags := archive.tagsFor(1); len(tags) != 0 {
		t.Fatalf("no document should have been touched, tags %v", tags)
	}
	if p.Status().State != StateIdle {
		t.Fatalf("expected idle state, got %q", p.Status().State)
	}
}

func TestRunStopsAtDocumentBoundary(t *testing.T) {
	archive := newFakeArchive(
		doc(1, "Scan 1", "text one"),
		doc(2, "Scan 2", "text two"),
	)
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)
	archive.onTag = func(int) { p.Stop() }

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if tags := archive.tagsFor(2); len(tags) != 0 {
		t.Fatalf("document 2 should not have been processed, tags %v", tags)
	}
	stats := p.Stats()
	if stats.Processed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if p.Status().State != StateIdle {
		t.Fatalf("expected idle state after stop, got %q", p.Status().State)
	}
}

func TestRunSecondPassIsIdempotent(t *testing.T) {
	archive := newFakeArchive(doc(1, "Scan", "text"))
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if tags := archive.tagsFor(1); len(tags) != 1 {
		t.Fatalf("document should have been tagged exactly once, tags %v", tags)
	}
	if records := p.Checkpoints().Records(); len(records) != 1 {
		t.Fatalf("expected 1 checkpoint record, got %d", len(records))
	}
	if stats := p.Stats(); stats.Skipped != 1 {
		t.Fatalf("second pass should have skipped, stats %+v", stats)
	}
}

func TestRunRejectsConcurrentStart(t *testing.T) {
	archive := newFakeArchive()
	p := newTestProcessor(t, testConfig(), archive, []backend.Evaluator{stubBackend{name: "a"}})

	p.mu.Lock()
	p.state = StateRunning
	p.mu.Unlock()

	if err := p.Run(context.Background()); !errors.Is(err, errRunActive) {
		t.Fatalf("expected errRunActive, got %v", err)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	archive := newFakeArchive(doc(1, "Scan", "text"))
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelHighQuality}}

	recorder := &captureRecorder{}
	p := newTestProcessor(t, testConfig(), archive, backends, WithRunRecorder(recorder))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(recorder.runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(recorder.runs))
	}
	run := recorder.runs[0]
	if run.ID == "" {
		t.Fatal("expected run id")
	}
	if run.StopReason != "completed" {
		t.Fatalf("unexpected stop reason %q", run.StopReason)
	}
	if run.HighQuality != 1 || run.Processed != 1 || run.Total != 1 {
		t.Fatalf("unexpected run counters %+v", run)
	}
}

type captureRecorder struct {
	runs []history.Run
}

func (c *captureRecorder) RecordRun(_ context.Context, run history.Run) error {
	c.runs = append(c.runs, run)
	return nil
}

func TestResetStatsZeroesCounters(t *testing.T) {
	archive := newFakeArchive(doc(1, "Scan", "text"))
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelLowQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats := p.Stats(); stats.Processed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	p.ResetStats()
	if stats := p.Stats(); stats != (Stats{}) {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}
}

func TestSubscribeReceivesProgress(t *testing.T) {
	archive := newFakeArchive(doc(1, "Scan", "text"))
	backends := []backend.Evaluator{stubBackend{name: "a", label: backend.LabelHighQuality}}
	p := newTestProcessor(t, testConfig(), archive, backends)

	events := p.Subscribe()
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	select {
	case event := <-events:
		if event.DocumentID != 1 || event.Outcome != OutcomeHighQuality {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.RunID == "" {
			t.Fatal("expected run id on event")
		}
	default:
		t.Fatal("expected a progress event")
	}
}
