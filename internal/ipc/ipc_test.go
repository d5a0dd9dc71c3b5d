package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tubeferry/internal/catalog"
	"tubeferry/internal/daemon"
	"tubeferry/internal/engine"
	"tubeferry/internal/ipc"
	"tubeferry/internal/logging"
	"tubeferry/internal/queue"
	"tubeferry/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng := testsupport.NewFakeEngine()
	eng.AddVideo("https://youtu.be/a", "a", "Alpha")
	eng.AddVideo("https://youtu.be/b", "b", "Beta")
	eng.SetSearch("Queen - Bohemian Rhapsody", []engine.Entry{{Title: "Bohemian Rhapsody", URL: "https://youtu.be/q"}})

	rec := testsupport.NewRecorder()
	logger := logging.NewNop()
	q, err := queue.New(cfg, testsupport.MustOpenStores(t, cfg), eng, queue.WithNotifier(rec))
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	planner := catalog.NewResolver(cfg.Spotify, staticMetadata{{Name: "Bohemian Rhapsody", Artists: []string{"Queen"}}}, eng, logger)
	d, err := daemon.New(cfg, q, planner, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() { d.Stop(context.Background()) })

	shutdown := make(chan struct{}, 1)
	socket := filepath.Join(t.TempDir(), "tubeferry.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger, func() { shutdown <- struct{}{} })
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.Mode != cfg.Downloads.Mode {
		t.Fatalf("unexpected status %+v", status)
	}

	added, err := client.Add(ipc.AddRequest{Requests: []queue.Request{
		{URL: "https://youtu.be/a", AutoStart: true},
		{URL: "https://youtu.be/b"},
		{URL: "https://youtu.be/missing"},
	}})
	if err != nil {
		t.Fatalf("Add RPC failed: %v", err)
	}
	if len(added.Results) != 3 || added.Results[0].Failed() || added.Results[1].Failed() {
		t.Fatalf("unexpected add results %+v", added.Results)
	}
	if !added.Results[2].Failed() || added.Results[2].Kind != "extraction error" {
		t.Fatalf("expected extraction failure, got %+v", added.Results[2])
	}
	rec.WaitFor(t, testsupport.EventCompleted, 1)

	list, err := client.List()
	if err != nil {
		t.Fatalf("List RPC failed: %v", err)
	}
	if len(list.Pending) != 1 || list.Pending[0].Key != "https://youtu.be/b" || list.Pending[0].Title != "Beta" {
		t.Fatalf("unexpected pending list %+v", list.Pending)
	}
	if len(list.Done) != 1 || list.Done[0].Status != "finished" {
		t.Fatalf("unexpected done list %+v", list.Done)
	}

	if _, err := client.Cancel(nil); err == nil {
		t.Fatal("expected cancel without keys to fail")
	}
	if resp, err := client.Cancel([]string{"https://youtu.be/b"}); err != nil || resp.Failed() {
		t.Fatalf("Cancel RPC failed: %v %+v", err, resp)
	}
	if resp, err := client.Clear(nil, true); err != nil || resp.Failed() {
		t.Fatalf("Clear RPC failed: %v %+v", err, resp)
	}
	list, err = client.List()
	if err != nil {
		t.Fatalf("List RPC failed: %v", err)
	}
	if len(list.Active)+len(list.Pending)+len(list.Done) != 0 {
		t.Fatalf("expected empty queues, got %+v", list)
	}

	plan, err := client.Resolve("https://open.spotify.com/track/abc", 0)
	if err != nil {
		t.Fatalf("Resolve RPC failed: %v", err)
	}
	if len(plan.Plan.Tracks) != 1 || plan.Plan.Tracks[0].MatchURL != "https://youtu.be/q" {
		t.Fatalf("unexpected plan %+v", plan.Plan)
	}
	if _, err := client.Resolve("https://youtu.be/a", 0); err == nil {
		t.Fatal("expected non-spotify resolve to fail")
	}

	if resp, err := client.Shutdown(); err != nil || !resp.Stopping {
		t.Fatalf("Shutdown RPC failed: %v %+v", err, resp)
	}
	select {
	case <-shutdown:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}

func TestServerRemovesSocketOnClose(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	q, err := queue.New(cfg, testsupport.MustOpenStores(t, cfg), testsupport.NewFakeEngine())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = q.Close(context.Background()) })
	d, err := daemon.New(cfg, q, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	socket := filepath.Join(t.TempDir(), "tubeferry.sock")
	srv, err := ipc.NewServer(context.Background(), socket, d, nil, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	if _, err := client.Shutdown(); err == nil {
		t.Fatal("expected shutdown to be unsupported without a callback")
	}
	client.Close()

	srv.Close()
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, stat err = %v", err)
	}
}

type staticMetadata []catalog.Track

func (m staticMetadata) Tracks(context.Context, catalog.Ref) ([]catalog.Track, error) {
	return m, nil
}
