package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papertriage/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[paperless]
base_url = "http://paperless.local:8000"
api_token = "secret"

[tags]
low_quality_tag_id = 7
high_quality_tag_id = 8

[[backends]]
name = "ollama"
url = "http://localhost:11434/api/generate"
model = "llama3.2"
`

func TestLoadMinimalConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := writeConfig(t, minimalConfig)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved=%q exists=true, got %q %v", path, resolved, exists)
	}

	if cfg.Paperless.BaseURL != "http://paperless.local:8000" {
		t.Fatalf("unexpected base url: %q", cfg.Paperless.BaseURL)
	}
	if cfg.Paperless.PageSize != 25 {
		t.Fatalf("expected default page size, got %d", cfg.Paperless.PageSize)
	}
	if !cfg.Tags.IgnoreAlreadyTagged {
		t.Fatal("expected ignore_already_tagged default true")
	}
	if cfg.Processing.QualityPrompt == "" {
		t.Fatal("expected default quality prompt")
	}
	wantData := filepath.Join(tempHome, ".local", "share", "papertriage")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if got := cfg.CheckpointPath(); got != filepath.Join(wantData, "checkpoints.json") {
		t.Fatalf("unexpected checkpoint path: %q", got)
	}
}

func TestLoadTokenFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PAPERLESS_API_TOKEN", "env-token")

	body := strings.Replace(minimalConfig, `api_token = "secret"`, "", 1)
	cfg, _, _, err := config.Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paperless.APIToken != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.Paperless.APIToken)
	}
}

func TestValidateRejectsMissingBackends(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	body := minimalConfig[:strings.Index(minimalConfig, "[[backends]]")]
	_, _, _, err := config.Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "backends") {
		t.Fatalf("expected backends validation error, got %v", err)
	}
}

func TestValidateRejectsEqualTagIDs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	body := strings.Replace(minimalConfig, "high_quality_tag_id = 8", "high_quality_tag_id = 7", 1)
	_, _, _, err := config.Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected tag id validation error, got %v", err)
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	body := minimalConfig + "\n[logging]\nformat = \"xml\"\n"
	_, _, _, err := config.Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging validation error, got %v", err)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error for existing config file")
	}
}
