package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"tubeferry/internal/config"
	"tubeferry/internal/store"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func TestNtfyCompletedPayloads(t *testing.T) {
	srv, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	n := New(&cfg, nil)
	ctx := context.Background()

	finished := store.Descriptor{Title: "Song", Status: store.StatusFinished, Filename: "Song.mp4"}
	if err := n.Completed(ctx, "https://youtu.be/a", finished); err != nil {
		t.Fatalf("Completed: %v", err)
	}
	failed := store.Descriptor{Title: "Other", Status: store.StatusError, Msg: "ERROR: Video unavailable"}
	if err := n.Completed(ctx, "https://youtu.be/b", failed); err != nil {
		t.Fatalf("Completed: %v", err)
	}
	if err := n.Added(ctx, "https://youtu.be/c", store.Descriptor{Title: "x"}); err != nil {
		t.Fatalf("Added: %v", err)
	}

	reqs := captured()
	if len(reqs) != 2 {
		t.Fatalf("got %d pushes, want 2", len(reqs))
	}
	if reqs[0].title != "tubeferry - Download Complete" || reqs[0].body != "Downloaded: Song\nFile: Song.mp4" {
		t.Errorf("unexpected completed push %+v", reqs[0])
	}
	if reqs[0].tags != "tubeferry,download,completed" || reqs[0].priority != "" {
		t.Errorf("unexpected completed headers %+v", reqs[0])
	}
	if reqs[1].title != "tubeferry - Download Failed" || reqs[1].priority != "high" {
		t.Errorf("unexpected failure push %+v", reqs[1])
	}
	if reqs[1].body != "Failed: Other\nERROR: Video unavailable" {
		t.Errorf("failure body = %q", reqs[1].body)
	}
}

func TestNtfyRespectsToggles(t *testing.T) {
	srv, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Completed = false
	n := New(&cfg, nil)

	if err := n.Completed(context.Background(), "k", store.Descriptor{Status: store.StatusFinished}); err != nil {
		t.Fatalf("Completed: %v", err)
	}
	if got := len(captured()); got != 0 {
		t.Fatalf("expected no pushes, got %d", got)
	}
}

func TestNtfyReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	n := New(&cfg, nil)

	err := n.Completed(context.Background(), "k", store.Descriptor{Status: store.StatusError, Msg: "boom"})
	if err == nil {
		t.Fatal("expected error from 403")
	}
}

type failingNotifier struct{ Noop }

func (failingNotifier) Canceled(context.Context, string) error { return errors.New("down") }

func TestMultiJoinsErrors(t *testing.T) {
	n := Multi(Noop{}, failingNotifier{}, nil)
	if err := n.Canceled(context.Background(), "k"); err == nil || err.Error() != "down" {
		t.Fatalf("err = %v", err)
	}
	if err := n.Cleared(context.Background(), "k"); err != nil {
		t.Fatalf("Cleared: %v", err)
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(nil)
	ctx := context.Background()
	pct := 42.0
	desc := store.Descriptor{URL: "k", Status: store.StatusDownloading, Percent: &pct}
	for _, err := range []error{
		n.Added(ctx, "k", desc),
		n.Updated(ctx, desc),
		n.Completed(ctx, "k", desc),
		n.Canceled(ctx, "k"),
		n.Cleared(ctx, "k"),
	} {
		if err != nil {
			t.Fatalf("log notifier returned %v", err)
		}
	}
}
