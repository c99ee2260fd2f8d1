package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"papertriage/internal/backend"
	"papertriage/internal/config"
	"papertriage/internal/daemon"
	"papertriage/internal/ipc"
	"papertriage/internal/logging"
	"papertriage/internal/paperless"
	"papertriage/internal/processor"
	"papertriage/internal/testsupport"
)

type stubArchive struct{}

func (stubArchive) FetchCSRFToken(context.Context) (string, error) { return "token", nil }

func (stubArchive) FetchDocuments(context.Context, int, int, paperless.ListFilter) ([]paperless.Document, error) {
	return []paperless.Document{{ID: 1, Title: "Scan", Content: "text"}}, nil
}

func (stubArchive) GetDocument(context.Context, int) (paperless.Document, error) {
	return paperless.Document{ID: 1, Title: "Scan", Content: "text"}, nil
}

func (stubArchive) Tag(context.Context, int, int, string) error { return nil }

func (stubArchive) UpdateTitle(context.Context, int, string, string) (bool, error) {
	return true, nil
}

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) EvaluateContent(context.Context, string, string, int) (string, error) {
	return backend.LabelHighQuality, nil
}

func (stubBackend) GenerateTitle(context.Context, string, string) (string, error) {
	return "", nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(homeDir, ".config", "papertriage", "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	store := testsupport.MustOpenCheckpoints(t, cfg)
	historyDB := testsupport.MustOpenHistory(t, cfg)
	proc := processor.New(cfg, stubArchive{}, []backend.Evaluator{stubBackend{}}, store, logger,
		processor.WithRunRecorder(historyDB),
		processor.WithSleeper(func(time.Duration) {}))

	d, err := daemon.New(cfg, proc, historyDB, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger, cancel)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
