package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-probe/internal/config"
	"github.com/samvad-hq/samvad-probe/internal/domain"
	"github.com/samvad-hq/samvad-probe/internal/storage"
	"github.com/samvad-hq/samvad-probe/pkg/publishers"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, targetURL, hookURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	targetsFile := writeFile(t, dir, "targets.yaml", fmt.Sprintf(`
targets:
  - id: site
    name: Site
    url: %s
    request_delay_ms: 1
`, targetURL))
	publishersFile := writeFile(t, dir, "publishers.yaml", fmt.Sprintf(`
publishers:
  - id: hook
    type: http
    http:
      url: %s
      timeout_seconds: 2
`, hookURL))

	return &config.Config{
		AppName:                "samvad-probe",
		TargetsFile:            targetsFile,
		PublishersFile:         publishersFile,
		ProbeInterval:          time.Hour,
		RequestTimeout:         5 * time.Second,
		ChunkSize:              64,
		MaxRedirects:           3,
		EventBuffer:            8,
		UserAgent:              "probe-app-test/1",
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "data", "probe.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestProberRunOnceStoresAndPublishes(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("alive"))
	}))
	defer site.Close()

	events := make(chan publishers.Event, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		events <- evt
		w.WriteHeader(http.StatusAccepted)
	}))
	defer hook.Close()

	cfg := testConfig(t, site.URL, hook.URL)
	prober, err := NewProber(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := prober.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	select {
	case evt := <-events:
		if evt.TargetID != "site" || evt.Outcome.Result != domain.ResultSucceeded || evt.Outcome.Bytes != 5 {
			t.Fatalf("unexpected event %+v", evt)
		}
	default:
		t.Fatalf("no event published")
	}

	store, err := storage.NewStore("bbolt", cfg.BBoltPath, storage.Options{})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	last, found, err := store.Last("site")
	if err != nil || !found {
		t.Fatalf("expected stored outcome, found=%v err=%v", found, err)
	}
	if last.StatusCode != http.StatusOK {
		t.Fatalf("stored outcome %+v", last)
	}
}

func TestProberRunStopsOnCancel(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("alive"))
	}))
	defer site.Close()
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	cfg := testConfig(t, site.URL, hook.URL)
	cfg.StorageType = "none"
	prober, err := NewProber(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- prober.Run(ctx) }()
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestNewProberRequiresTargets(t *testing.T) {
	cfg := testConfig(t, "https://example.test", "https://hook.example.test")
	cfg.TargetsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewProber(context.Background(), cfg, nil, nil); err == nil {
		t.Fatalf("expected error for missing targets file")
	}
	if _, err := NewProber(context.Background(), nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
