package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTriggerRun_SendsBearerTokenAndDecodesResult(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(RunResult{RunID: "run-1", Status: "running"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret-key", DefaultWorkflow: "ingest"})
	result, err := c.TriggerRun(context.Background(), "", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization header = %q, want Bearer secret-key", gotAuth)
	}
	if gotPath != "/runs" {
		t.Errorf("path = %q, want /runs", gotPath)
	}
	if result.RunID != "run-1" || result.Status != "running" {
		t.Errorf("result = %+v, want run-1/running", result)
	}
}

func TestTriggerRun_NoWorkflowNameAndNoDefaultFails(t *testing.T) {
	c := New(Config{BaseURL: "http://unused", APIKey: "k"})
	if _, err := c.TriggerRun(context.Background(), "", nil); err == nil {
		t.Fatal("expected error when no workflow name and no default are given")
	}
}

func TestGetRun_PropagatesClientErrorWithoutRetry(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k"})
	if _, err := c.GetRun(context.Background(), "missing-run"); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx should not be retried-to-exhaustion by the caller's single request)", attempts)
	}
}

func TestGetRun_RetriesServerErrorThenSucceeds(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(RunResult{RunID: "run-2", Status: "completed"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k"})
	result, err := c.GetRun(context.Background(), "run-2")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if attempts < 2 {
		t.Errorf("attempts = %d, want at least 2 (first 503 should be retried)", attempts)
	}
	if result.Status != "completed" {
		t.Errorf("status = %q, want completed", result.Status)
	}
}
