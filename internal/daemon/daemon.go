package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tubeferry/internal/catalog"
	"tubeferry/internal/config"
	"tubeferry/internal/deps"
	"tubeferry/internal/logging"
	"tubeferry/internal/preflight"
	"tubeferry/internal/queue"
	"tubeferry/internal/services"
)

// Planner produces dry-run resolutions for restricted-catalog references.
type Planner interface {
	Explain(ctx context.Context, url string, limit int) (catalog.Plan, error)
}

// Daemon owns the queue for the lifetime of the process and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	queue   *queue.Queue
	planner Planner

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	restoring atomic.Bool
	restoreWG sync.WaitGroup
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	Restoring     bool
	PID           int
	StartedAt     time.Time
	Mode          string
	MaxConcurrent int
	Active        int
	Pending       int
	Done          int
	StateDir      string
	LockPath      string
	SocketPath    string
	Spotify       bool
	Dependencies  []deps.Status
}

// New constructs a daemon around an already built queue. planner may be nil
// when catalog resolution is unavailable.
func New(cfg *config.Config, q *queue.Queue, planner Planner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || q == nil {
		return nil, errors.New("daemon requires config and queue")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		queue:    q,
		planner:  planner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and restores persisted jobs in the
// background. Interrupted downloads are re-admitted.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tubeferry daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.restoring.Store(true)

	d.restoreWG.Add(1)
	go func() {
		defer d.restoreWG.Done()
		defer d.restoring.Store(false)
		ctx := services.WithStage(runCtx, "restore")
		if err := d.queue.Restore(ctx); err != nil {
			logging.ErrorWithContext(d.logger, "queue restore failed", "queue_restore_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the store files under the state directory"),
				logging.String(logging.FieldImpact, "persisted jobs may be missing from the queue"),
			)
			return
		}
		snap := d.queue.Snapshot()
		d.logger.Info("queue restored",
			logging.Int("active", len(snap.Active)),
			logging.Int("pending", len(snap.Pending)),
			logging.Int("done", len(snap.Done)),
		)
	}()

	d.logger.Info("tubeferry daemon started",
		logging.String("lock", d.lockPath),
		logging.String("mode", d.cfg.Downloads.Mode),
	)
	return nil
}

// Stop waits for running downloads to wind down and releases the lock.
// Interrupted jobs stay in the active store for the next start.
func (d *Daemon) Stop(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.restoreWG.Wait()
	if err := d.queue.Close(ctx); err != nil {
		logging.WarnWithContext(d.logger, "queue shutdown incomplete", "queue_close_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "downloads may still be exiting; they will be re-queued on next start"),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tubeferry daemon stopped")
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Add admits a download request.
func (d *Daemon) Add(ctx context.Context, req queue.Request) queue.Result {
	return d.queue.Admit(ctx, req, nil)
}

// Snapshot lists the three queues.
func (d *Daemon) Snapshot() queue.Snapshot {
	return d.queue.Snapshot()
}

// Cancel cancels pending or running jobs.
func (d *Daemon) Cancel(ctx context.Context, keys []string) queue.Result {
	return d.queue.Cancel(ctx, keys)
}

// StartPending moves pending jobs to active.
func (d *Daemon) StartPending(ctx context.Context, keys []string) queue.Result {
	return d.queue.StartPending(ctx, keys)
}

// Clear removes done records. allDone clears every finished or failed job.
func (d *Daemon) Clear(ctx context.Context, keys []string, allDone bool) queue.Result {
	if allDone {
		keys = append(keys, d.queue.DoneKeys()...)
	}
	return d.queue.Clear(ctx, keys)
}

// Resolve explains how a Spotify reference would be matched.
func (d *Daemon) Resolve(ctx context.Context, url string, limit int) (catalog.Plan, error) {
	if d.planner == nil {
		return catalog.Plan{}, services.Reason(services.ErrConfiguration, "catalog resolution is not configured", nil)
	}
	return d.planner.Explain(ctx, url, limit)
}

// LockPath returns the flock file guarding the state directory.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	snap := d.queue.Snapshot()
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()
	return Status{
		Running:       d.running.Load(),
		Restoring:     d.restoring.Load(),
		PID:           os.Getpid(),
		StartedAt:     startedAt,
		Mode:          d.cfg.Downloads.Mode,
		MaxConcurrent: d.cfg.Downloads.MaxConcurrent,
		Active:        len(snap.Active),
		Pending:       len(snap.Pending),
		Done:          len(snap.Done),
		StateDir:      d.cfg.Paths.StateDir,
		LockPath:      d.lockPath,
		SocketPath:    d.cfg.SocketPath(),
		Spotify:       d.cfg.HasSpotifyCredentials(),
		Dependencies:  preflight.CheckSystemDeps(d.cfg),
	}
}
