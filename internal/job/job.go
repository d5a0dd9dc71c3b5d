package job

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tubeferry/internal/engine"
	"tubeferry/internal/logging"
	"tubeferry/internal/store"
)

// Updater receives descriptor snapshots while a job runs.
type Updater interface {
	Updated(ctx context.Context, desc store.Descriptor) error
}

// Job is one requested download. It owns its Worker exclusively.
type Job struct {
	key         string
	downloadDir string
	req         engine.DownloadRequest
	downloader  engine.Downloader
	logger      *slog.Logger

	mu          sync.Mutex
	desc        store.Descriptor
	worker      *Worker
	started     bool
	canceled    bool
	tmpFilename string
	stop        chan struct{}
	stopOnce    sync.Once
}

// New builds a job for desc. req carries the resolved directories and
// templates handed to the engine.
func New(key string, desc store.Descriptor, req engine.DownloadRequest, downloader engine.Downloader, logger *slog.Logger) *Job {
	return &Job{
		key:         key,
		downloadDir: req.Directory,
		req:         req,
		downloader:  downloader,
		logger:      logging.NewComponentLogger(logger, "job"),
		desc:        desc.Clone(),
		stop:        make(chan struct{}),
	}
}

// Key returns the job's canonical URL.
func (j *Job) Key() string {
	return j.key
}

// Request returns the engine request the job runs with.
func (j *Job) Request() engine.DownloadRequest {
	return j.req
}

// Snapshot returns a copy of the current descriptor.
func (j *Job) Snapshot() store.Descriptor {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.desc.Clone()
}

// Started reports whether Start spawned a worker.
func (j *Job) Started() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.started
}

// Canceled reports whether Cancel was called.
func (j *Job) Canceled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.canceled
}

// TempFilename is the last partial file the engine reported.
func (j *Job) TempFilename() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tmpFilename
}

// Fail marks the job as errored without running it.
func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.desc.Status = store.StatusError
	j.desc.Msg = msg
}

// SetStatus forces the descriptor status, used by cleanup.
func (j *Job) SetStatus(status store.Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.desc.Status = status
}

// Start runs the download and blocks until the worker has exited and every
// status update has been relayed. It is a no-op on a canceled or already
// started job.
func (j *Job) Start(ctx context.Context, updater Updater) {
	j.mu.Lock()
	if j.canceled || j.started {
		j.mu.Unlock()
		return
	}
	worker := newWorker(j.downloader, j.req)
	j.worker = worker
	j.started = true
	j.desc.Status = store.StatusPreparing
	snap := j.desc.Clone()
	worker.start(ctx)
	j.mu.Unlock()

	j.notify(ctx, updater, snap)

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		j.relay(ctx, worker, updater)
	}()

	<-worker.Done()
	<-relayDone

	j.mu.Lock()
	if !j.canceled && !j.desc.Status.IsTerminal() {
		j.desc.Status = store.StatusError
		if j.desc.Msg == "" {
			j.desc.Msg = "download exited without reporting a result"
		}
	}
	j.mu.Unlock()
}

func (j *Job) relay(ctx context.Context, worker *Worker, updater Updater) {
	for {
		select {
		case <-j.stop:
			return
		case update, ok := <-worker.Updates():
			if !ok {
				return
			}
			j.mu.Lock()
			if j.canceled {
				j.mu.Unlock()
				return
			}
			j.apply(update)
			snap := j.desc.Clone()
			j.mu.Unlock()
			j.notify(ctx, updater, snap)
		}
	}
}

func (j *Job) notify(ctx context.Context, updater Updater, snap store.Descriptor) {
	if updater == nil {
		return
	}
	if err := updater.Updated(ctx, snap); err != nil {
		j.logger.Debug("update notification failed", logging.String(logging.FieldJobKey, j.key), logging.Error(err))
	}
}

// apply folds the whitelisted progress fields into the descriptor. The
// caller holds j.mu.
func (j *Job) apply(p engine.Progress) {
	if p.TmpFilename != nil {
		j.tmpFilename = *p.TmpFilename
	}
	if p.Filename != nil && *p.Filename != "" {
		j.applyFilename(*p.Filename)
	}
	if p.Status != nil {
		if status, ok := store.ParseStatus(*p.Status); ok {
			j.desc.Status = status
		}
	}
	if p.Msg != nil {
		j.desc.Msg = *p.Msg
	}

	total := p.TotalBytes
	if total == nil || *total <= 0 {
		total = p.TotalBytesEstimate
	}
	if p.DownloadedBytes != nil && total != nil && *total > 0 {
		percent := math.Min(*p.DownloadedBytes / *total * 100, 100)
		j.desc.Percent = &percent
	}
	if p.Speed != nil {
		speed := *p.Speed
		j.desc.Speed = &speed
	}
	if p.ETA != nil {
		eta := int64(*p.ETA)
		j.desc.ETA = &eta
	}
}

func (j *Job) applyFilename(name string) {
	if strings.EqualFold(j.desc.Format, engine.FormatThumbnail) && strings.EqualFold(filepath.Ext(name), ".webm") {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	}
	abs := name
	if !filepath.IsAbs(abs) && j.downloadDir != "" {
		abs = filepath.Join(j.downloadDir, abs)
	}
	rel := filepath.Base(abs)
	if j.downloadDir != "" {
		if r, err := filepath.Rel(j.downloadDir, abs); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	j.desc.Filename = rel
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		size := info.Size()
		j.desc.Size = &size
	}
}

// Cancel flags the job, kills the worker and unblocks the relay. The kill
// is unconditional: a worker whose download already returned may still be
// parked sending its final status. Cancel is idempotent and reports whether
// a worker had been started.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	j.canceled = true
	started := j.started
	worker := j.worker
	j.mu.Unlock()

	j.stopOnce.Do(func() { close(j.stop) })
	if worker != nil {
		worker.Kill()
	}
	return started
}

// Close releases worker resources. Safe to call after Start.
func (j *Job) Close() {
	j.mu.Lock()
	worker := j.worker
	j.mu.Unlock()
	if worker != nil {
		worker.Kill()
	}
}
