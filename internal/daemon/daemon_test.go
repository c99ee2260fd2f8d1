package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"papertriage/internal/backend"
	"papertriage/internal/checkpoint"
	"papertriage/internal/config"
	"papertriage/internal/logging"
	"papertriage/internal/paperless"
	"papertriage/internal/processor"
)

type stubArchive struct{}

func (stubArchive) FetchCSRFToken(context.Context) (string, error) { return "token", nil }

func (stubArchive) FetchDocuments(context.Context, int, int, paperless.ListFilter) ([]paperless.Document, error) {
	return nil, nil
}

func (stubArchive) GetDocument(context.Context, int) (paperless.Document, error) {
	return paperless.Document{}, nil
}

func (stubArchive) Tag(context.Context, int, int, string) error { return nil }

func (stubArchive) UpdateTitle(context.Context, int, string, string) (bool, error) {
	return true, nil
}

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) EvaluateContent(context.Context, string, string, int) (string, error) {
	return backend.LabelLowQuality, nil
}

func (stubBackend) GenerateTitle(context.Context, string, string) (string, error) {
	return "", nil
}

func testConfig(t *testing.T, bind string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.DataDir, "logs")
	cfg.Paths.APIBind = bind
	cfg.Tags.LowQualityTagID = 1
	cfg.Tags.HighQualityTagID = 2
	return &cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	store := checkpoint.Open(cfg.CheckpointPath(), logging.NewNop())
	proc := processor.New(cfg, stubArchive{}, []backend.Evaluator{stubBackend{}}, store, logging.NewNop())
	d, err := New(cfg, proc, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testConfig(t, "")
	ctx := context.Background()

	first := newTestDaemon(t, cfg)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second := newTestDaemon(t, cfg)
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonPauseResumeToggle(t *testing.T) {
	cfg := testConfig(t, "")
	d := newTestDaemon(t, cfg)

	// A paused flag only matters during a run, but the toggle is stateless.
	if paused := d.PauseResume(); paused {
		t.Fatal("toggle on idle processor should not report paused")
	}
}

func TestDaemonClearCheckpoints(t *testing.T) {
	cfg := testConfig(t, "")
	d := newTestDaemon(t, cfg)

	record := checkpoint.Record{DocumentID: 1, ProcessedAt: time.Now().UTC()}
	if err := d.processor.Checkpoints().Save(record); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}

	removed, err := d.ClearCheckpoints()
	if err != nil {
		t.Fatalf("clear checkpoints: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed record, got %d", removed)
	}
	if len(d.processor.Checkpoints().Records()) != 0 {
		t.Fatal("expected empty checkpoint store")
	}
}

func TestAPIStatusEndpoint(t *testing.T) {
	cfg := testConfig(t, "127.0.0.1:0")
	cfg.Paths.APIToken = "secret"
	d := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	base := "http://" + d.api.listener.Addr().String()

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get status with token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Running {
		t.Fatal("expected running daemon")
	}
	if payload.Processor.State != processor.StateIdle {
		t.Fatalf("expected idle processor, got %q", payload.Processor.State)
	}
}
