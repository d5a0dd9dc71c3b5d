package queue

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"tubeferry/internal/config"
	"tubeferry/internal/job"
	"tubeferry/internal/logging"
	"tubeferry/internal/services"
	"tubeferry/internal/store"
)

// dispatcher decides when an admitted job's worker starts.
type dispatcher interface {
	dispatch(ctx context.Context, j *job.Job)
	close()
}

func newDispatcher(q *Queue, mode string, limit int) dispatcher {
	switch mode {
	case config.ModeSequential:
		return &sequentialDispatcher{q: q}
	case config.ModeUnlimited:
		return unlimitedDispatcher{q: q}
	default:
		if limit < 1 {
			limit = 1
		}
		return &limitedDispatcher{q: q, sem: semaphore.NewWeighted(int64(limit))}
	}
}

// sequentialDispatcher runs one job at a time in admission order. A job's
// cleanup finishes before the next one starts.
type sequentialDispatcher struct {
	q       *Queue
	mu      sync.Mutex
	fifo    []*job.Job
	ctxs    []context.Context
	running bool
}

func (d *sequentialDispatcher) dispatch(ctx context.Context, j *job.Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fifo = append(d.fifo, j)
	d.ctxs = append(d.ctxs, ctx)
	if d.running {
		return
	}
	d.running = true
	d.q.goRun(d.drain)
}

func (d *sequentialDispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.fifo) == 0 || d.q.runCtx.Err() != nil {
			d.running = false
			d.mu.Unlock()
			return
		}
		j, ctx := d.fifo[0], d.ctxs[0]
		d.fifo, d.ctxs = d.fifo[1:], d.ctxs[1:]
		d.mu.Unlock()
		d.q.run(ctx, j)
	}
}

func (d *sequentialDispatcher) close() {
	d.mu.Lock()
	d.fifo, d.ctxs = nil, nil
	d.mu.Unlock()
}

// limitedDispatcher bounds the number of live workers with a weighted
// semaphore. Waiters are admitted in arrival order.
type limitedDispatcher struct {
	q   *Queue
	sem *semaphore.Weighted
}

func (d *limitedDispatcher) dispatch(ctx context.Context, j *job.Job) {
	d.q.goRun(func() {
		if err := d.sem.Acquire(d.q.runCtx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)
		d.q.run(ctx, j)
	})
}

func (d *limitedDispatcher) close() {}

// unlimitedDispatcher starts every job immediately.
type unlimitedDispatcher struct {
	q *Queue
}

func (d unlimitedDispatcher) dispatch(ctx context.Context, j *job.Job) {
	d.q.goRun(func() { d.q.run(ctx, j) })
}

func (unlimitedDispatcher) close() {}

// jobContext detaches a job from the request that admitted it while keeping
// the correlation fields for logging.
func (q *Queue) jobContext(admission context.Context, key string) context.Context {
	ctx := services.WithJobKey(q.runCtx, key)
	if rid, ok := services.RequestIDFromContext(admission); ok {
		ctx = services.WithRequestID(ctx, rid)
	}
	return services.WithStage(ctx, "download")
}

// run starts the job and performs its cleanup.
func (q *Queue) run(admission context.Context, j *job.Job) {
	if j.Canceled() {
		q.logger.Debug("skipping canceled job", logging.String(logging.FieldJobKey, j.Key()))
		return
	}
	ctx := q.jobContext(admission, j.Key())
	if msg, ok := q.checkFreeSpace(j); !ok {
		j.Fail(msg)
	} else {
		j.Start(ctx, q.notifier)
	}
	q.cleanup(ctx, j)
}

func (q *Queue) checkFreeSpace(j *job.Job) (string, bool) {
	minimum := q.cfg.Downloads.MinFreeSpace
	if minimum == 0 {
		return "", true
	}
	dir := j.Request().Directory
	free, err := q.freeSpace(dir)
	if err != nil {
		q.logger.Debug("free space probe failed", logging.String(logging.FieldJobKey, j.Key()), logging.Error(err))
		return "", true
	}
	if free < minimum.Bytes() {
		return "Not enough free space in " + dir + " (need " + minimum.HumanReadable() + ")", false
	}
	return "", true
}

// cleanup runs once per worker exit. Removal from the active store is the
// single record of completion, so a cancel racing a natural finish emits
// exactly one of canceled or completed.
func (q *Queue) cleanup(ctx context.Context, j *job.Job) {
	if q.closing.Load() {
		j.Close()
		return
	}
	key := j.Key()
	logger := logging.WithContext(ctx, q.logger)

	if snap := j.Snapshot(); snap.Status != store.StatusFinished {
		if tmp := j.TempFilename(); tmp != "" {
			if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Debug("remove temp file failed", logging.String("path", tmp), logging.Error(err))
			}
		}
		j.SetStatus(store.StatusError)
	}
	j.Close()

	q.mu.Lock()
	if !q.active.Exists(key) {
		q.mu.Unlock()
		return
	}
	if err := q.active.Delete(ctx, key); err != nil {
		// The record stays active and is re-admitted on the next restore.
		delete(q.jobs, key)
		q.mu.Unlock()
		logging.ErrorWithContext(logger, "remove active record failed", "store_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		)
		return
	}
	delete(q.jobs, key)
	if j.Canceled() {
		q.mu.Unlock()
		if err := q.notifier.Canceled(ctx, key); err != nil {
			logger.Debug("canceled notification failed", logging.Error(err))
		}
		return
	}
	desc := j.Snapshot()
	if err := q.done.Put(ctx, key, desc); err != nil {
		logging.ErrorWithContext(logger, "record finished download failed", "store_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		)
	}
	q.mu.Unlock()
	if err := q.notifier.Completed(ctx, key, desc); err != nil {
		logger.Debug("completed notification failed", logging.Error(err))
	}
}
