package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tubeferry/internal/engine"
	"tubeferry/internal/store"
)

type fakeDownloader struct {
	updates []engine.Progress
	err     error
	block   bool
	started chan struct{}
}

func (f *fakeDownloader) Download(ctx context.Context, _ engine.DownloadRequest, onProgress func(engine.Progress)) error {
	if f.started != nil {
		close(f.started)
	}
	for _, u := range f.updates {
		onProgress(u)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type updateRecorder struct {
	mu    sync.Mutex
	descs []store.Descriptor
}

func (r *updateRecorder) Updated(_ context.Context, desc store.Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs = append(r.descs, desc)
	return nil
}

func (r *updateRecorder) statuses() []store.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Status, 0, len(r.descs))
	for _, d := range r.descs {
		out = append(out, d.Status)
	}
	return out
}

func newTestJob(t *testing.T, dl engine.Downloader, format string) (*Job, string) {
	t.Helper()
	dir := t.TempDir()
	desc := store.Descriptor{ID: "abc", Title: "Song", URL: "https://youtu.be/abc", Format: format, Status: store.StatusPending}
	req := engine.DownloadRequest{URL: desc.URL, Directory: dir, Format: format}
	return New(desc.URL, desc, req, dl, nil), dir
}

func TestStartRelaysProgress(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "sub", "Song.mp4")
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(final, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	dl := &fakeDownloader{updates: []engine.Progress{
		{Status: engine.Ptr("downloading"), TmpFilename: engine.Ptr(final + ".part"), DownloadedBytes: engine.Ptr(25.0), TotalBytesEstimate: engine.Ptr(100.0), Speed: engine.Ptr(2.5), ETA: engine.Ptr(3.0)},
		{Status: engine.Ptr("finished"), Filename: engine.Ptr(final)},
	}}
	desc := store.Descriptor{URL: "u", Format: "any", Status: store.StatusPending}
	j := New("u", desc, engine.DownloadRequest{URL: "u", Directory: dir}, dl, nil)
	rec := &updateRecorder{}

	j.Start(context.Background(), rec)

	got := rec.statuses()
	want := []store.Status{store.StatusPreparing, store.StatusDownloading, store.StatusFinished}
	if len(got) != len(want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
	snap := j.Snapshot()
	if snap.Percent == nil || *snap.Percent != 25 {
		t.Errorf("percent = %v, want 25", snap.Percent)
	}
	if snap.ETA == nil || *snap.ETA != 3 {
		t.Errorf("eta = %v", snap.ETA)
	}
	if snap.Filename != filepath.Join("sub", "Song.mp4") {
		t.Errorf("filename = %q", snap.Filename)
	}
	if snap.Size == nil || *snap.Size != 5 {
		t.Errorf("size = %v", snap.Size)
	}
	if j.TempFilename() != final+".part" {
		t.Errorf("tmp filename = %q", j.TempFilename())
	}
}

func TestStartEngineErrorBecomesErrorStatus(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("ERROR: Video unavailable")}
	j, _ := newTestJob(t, dl, "any")

	j.Start(context.Background(), nil)

	snap := j.Snapshot()
	if snap.Status != store.StatusError || snap.Msg != "ERROR: Video unavailable" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStartCleanExitWithoutStatusFinishes(t *testing.T) {
	j, _ := newTestJob(t, &fakeDownloader{}, "any")
	j.Start(context.Background(), nil)
	if got := j.Snapshot().Status; got != store.StatusFinished {
		t.Fatalf("status = %s", got)
	}
}

func TestThumbnailFilenameRewritten(t *testing.T) {
	dl := &fakeDownloader{updates: []engine.Progress{{Status: engine.Ptr("finished"), Filename: engine.Ptr("Clip.webm")}}}
	j, _ := newTestJob(t, dl, engine.FormatThumbnail)
	j.Start(context.Background(), nil)
	if got := j.Snapshot().Filename; got != "Clip.jpg" {
		t.Fatalf("filename = %q", got)
	}
}

func TestCancelBeforeStartIsNoop(t *testing.T) {
	dl := &fakeDownloader{}
	j, _ := newTestJob(t, dl, "any")
	if j.Cancel() {
		t.Fatal("Cancel reported a started worker")
	}
	j.Cancel()
	rec := &updateRecorder{}
	j.Start(context.Background(), rec)
	if len(rec.statuses()) != 0 {
		t.Fatalf("canceled job emitted updates: %v", rec.statuses())
	}
	if j.Started() {
		t.Fatal("canceled job started")
	}
}

func TestCancelKillsRunningWorker(t *testing.T) {
	dl := &fakeDownloader{block: true, started: make(chan struct{})}
	j, _ := newTestJob(t, dl, "any")

	done := make(chan struct{})
	go func() {
		j.Start(context.Background(), nil)
		close(done)
	}()
	<-dl.started
	if !j.Cancel() {
		t.Fatal("expected Cancel to report a started worker")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Cancel")
	}
	if !j.Canceled() {
		t.Fatal("job not flagged canceled")
	}
	j.Close()
}

// stallingUpdater blocks its second Updated call until release is closed.
type stallingUpdater struct {
	mu      sync.Mutex
	calls   int
	stalled chan struct{}
	release chan struct{}
}

func (u *stallingUpdater) Updated(context.Context, store.Descriptor) error {
	u.mu.Lock()
	u.calls++
	n := u.calls
	u.mu.Unlock()
	if n == 2 {
		close(u.stalled)
		<-u.release
	}
	return nil
}

func TestCancelAfterDownloadReturnedUnblocksWorker(t *testing.T) {
	// The first relayed update stalls the updater, so the worker fills the
	// status buffer and parks on its final error after Download returns.
	updates := make([]engine.Progress, statusBuffer+1)
	for i := range updates {
		updates[i] = engine.Progress{Status: engine.Ptr("downloading")}
	}
	dl := &fakeDownloader{updates: updates, err: errors.New("ERROR: fragment 3 not found")}
	j, _ := newTestJob(t, dl, "any")
	upd := &stallingUpdater{stalled: make(chan struct{}), release: make(chan struct{})}

	done := make(chan struct{})
	go func() {
		j.Start(context.Background(), upd)
		close(done)
	}()

	<-upd.stalled
	deadline := time.Now().Add(2 * time.Second)
	for {
		j.mu.Lock()
		worker := j.worker
		j.mu.Unlock()
		if worker != nil && !worker.Alive() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("download never returned")
		}
		time.Sleep(time.Millisecond)
	}

	j.Cancel()
	close(upd.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Cancel")
	}
}
