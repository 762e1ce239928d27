// v0
// internal/app/app_test.go
package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MayorChristopher/poultry-management-system/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.LogFilePath = filepath.Join(t.TempDir(), "farm.log")
	cfg.SampleInterval = 50 * time.Millisecond
	cfg.FlushSettleDelay = 10 * time.Millisecond
	cfg.LogFeedInterval = 50 * time.Millisecond
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestNewRejectsEmptyListenAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.ListenAddress = " "
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for empty listen address")
	}
}

func TestNewRejectsBadCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogCatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestHandlerServesHealthAndState(t *testing.T) {
	a, err := build(testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health/live")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("live status: got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/health/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ready before Run: got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("state without token: got %d", resp.StatusCode)
	}
}

func TestBuildWithoutTelemetryHasNoForwarder(t *testing.T) {
	cfg := testConfig(t)
	cfg.KafkaEnabled = false
	cfg.MQTTEnabled = false
	a, err := build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if a.forwarder != nil {
		t.Fatalf("forwarder should be nil when no sink is enabled")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !a.health.Ready() {
		if time.Now().After(deadline) {
			t.Fatalf("application never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := a.dispatcher.Execute(context.Background(), "Flush Water System"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
	if a.health.Ready() {
		t.Fatalf("ready should be false after shutdown")
	}
	if got := len(a.store.State().ControlActions); got < 1 {
		t.Fatalf("expected recorded action, got %d", got)
	}
}
