package queue

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"tubeferry/internal/job"
	"tubeferry/internal/logging"
	"tubeferry/internal/services"
)

// Cancel stops or withdraws the given jobs. Pending and not-yet-started
// active jobs are removed at once; running jobs are killed and removed by
// their cleanup. Unknown keys are skipped.
func (q *Queue) Cancel(ctx context.Context, keys []string) Result {
	logger := logging.WithContext(ctx, q.logger)
	for _, key := range keys {
		q.mu.Lock()
		if q.pending.Exists(key) {
			err := q.pending.Delete(ctx, key)
			delete(q.jobs, key)
			q.mu.Unlock()
			if err != nil {
				return Fail(services.Wrap(services.ErrAdmission, "queue", "cancel pending", key, err))
			}
			q.notifyCanceled(ctx, key)
			continue
		}
		if !q.active.Exists(key) {
			q.mu.Unlock()
			logger.Warn("cancel requested for unknown download", logging.String(logging.FieldJobKey, key))
			continue
		}
		j := q.jobs[key]
		if j != nil && j.Cancel() {
			q.mu.Unlock()
			continue
		}
		err := q.active.Delete(ctx, key)
		delete(q.jobs, key)
		q.mu.Unlock()
		if err != nil {
			return Fail(services.Wrap(services.ErrAdmission, "queue", "cancel queued", key, err))
		}
		q.notifyCanceled(ctx, key)
	}
	return OK("")
}

// StartPending moves pending jobs to the active store and dispatches them.
// The job is written to the active store before it leaves pending.
func (q *Queue) StartPending(ctx context.Context, keys []string) Result {
	logger := logging.WithContext(ctx, q.logger)
	for _, key := range keys {
		q.mu.Lock()
		desc, ok := q.pending.Get(key)
		if !ok {
			q.mu.Unlock()
			logger.Warn("start requested for unknown pending download", logging.String(logging.FieldJobKey, key))
			continue
		}
		j := q.jobs[key]
		if j == nil {
			j = q.restoredJob(key, desc)
			q.jobs[key] = j
		}
		if err := q.active.Put(ctx, key, j.Snapshot()); err != nil {
			q.mu.Unlock()
			return Fail(services.Wrap(services.ErrAdmission, "queue", "activate pending", key, err))
		}
		if err := q.pending.Delete(ctx, key); err != nil {
			if rbErr := q.active.Delete(ctx, key); rbErr != nil {
				logging.ErrorWithContext(logger, "roll back activated record failed", "store_write_failed",
					logging.String(logging.FieldJobKey, key),
					logging.Error(rbErr),
					logging.String(logging.FieldErrorHint, "check the state directory is writable"),
				)
			}
			q.mu.Unlock()
			return Fail(services.Wrap(services.ErrAdmission, "queue", "activate pending", key, err))
		}
		q.mu.Unlock()
		q.dispatch.dispatch(ctx, j)
	}
	return OK("")
}

// Clear removes finished records, deleting the downloaded file first when
// downloads.delete_file_on_clear is set. Unknown keys are skipped.
func (q *Queue) Clear(ctx context.Context, keys []string) Result {
	logger := logging.WithContext(ctx, q.logger)
	for _, key := range keys {
		q.mu.Lock()
		desc, ok := q.done.Get(key)
		if !ok {
			q.mu.Unlock()
			logger.Warn("clear requested for unknown download", logging.String(logging.FieldJobKey, key))
			continue
		}
		if q.cfg.Downloads.DeleteFileOnClear && desc.Filename != "" {
			q.removeOutput(logger, key, desc.Quality, desc.Format, desc.Folder, desc.Filename)
		}
		err := q.done.Delete(ctx, key)
		q.mu.Unlock()
		if err != nil {
			return Fail(services.Wrap(services.ErrAdmission, "queue", "clear", key, err))
		}
		q.notifyCleared(ctx, key)
	}
	return OK("")
}

// DoneKeys lists the keys of every finished record.
func (q *Queue) DoneKeys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done.Keys()
}

func (q *Queue) removeOutput(logger *slog.Logger, key, quality, format, folder, filename string) {
	dir, err := q.downloadDir(quality, format, folder, false)
	if err != nil {
		logger.Warn("resolve output for clear failed", logging.String(logging.FieldJobKey, key), logging.Error(err))
		return
	}
	path := filepath.Join(dir, filename)
	if !within(dir, path) {
		logger.Warn("refusing to delete file outside download directory", logging.String("path", path))
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("delete downloaded file failed", logging.String("path", path), logging.Error(err))
	}
}

func (q *Queue) notifyCanceled(ctx context.Context, key string) {
	if err := q.notifier.Canceled(ctx, key); err != nil {
		q.logger.Debug("canceled notification failed", logging.String(logging.FieldJobKey, key), logging.Error(err))
	}
}

// Job returns the runtime job for a pending or active key.
func (q *Queue) Job(key string) (*job.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[key]
	return j, ok
}
