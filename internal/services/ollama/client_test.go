package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestCompleteConcatenatesFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"response":"high","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"_quality","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"","done":true}` + "\n"))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "llama3.2"})
	text, err := client.Complete(context.Background(), "judge this")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "high_quality" {
		t.Fatalf("unexpected completion: %q", text)
	}
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not found"}` + "\n"))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "missing"})
	if _, err := client.Complete(context.Background(), "judge"); err == nil {
		t.Fatal("expected api error")
	} else if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"response":"low_quality","done":true}` + "\n"))
	}))
	defer server.Close()

	var slept int
	client := NewClient(
		Config{URL: server.URL, Model: "llama3.2"},
		WithRetry(3, 10*time.Millisecond),
		WithSleeper(func(time.Duration) { slept++ }),
	)
	text, err := client.Complete(context.Background(), "judge")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "low_quality" {
		t.Fatalf("unexpected completion: %q", text)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if slept != 2 {
		t.Fatalf("expected 2 retry sleeps, got %d", slept)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "llama3.2"}, WithSleeper(func(time.Duration) {}))
	if _, err := client.Complete(context.Background(), "judge"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single attempt, got %d", got)
	}
}

func TestCompleteEmptyStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "llama3.2"})
	if _, err := client.Complete(context.Background(), "judge"); err == nil {
		t.Fatal("expected error for empty stream")
	}
}
