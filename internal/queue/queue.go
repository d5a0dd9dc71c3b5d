package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tubeferry/internal/config"
	"tubeferry/internal/engine"
	"tubeferry/internal/job"
	"tubeferry/internal/logging"
	"tubeferry/internal/notifications"
	"tubeferry/internal/preflight"
	"tubeferry/internal/store"
)

// Store names; each is a separate SQLite file under the state directory.
const (
	PendingStore = "pending"
	ActiveStore  = "queue"
	DoneStore    = "completed"
)

// Stores groups the three queue stages.
type Stores struct {
	Pending *store.Store
	Active  *store.Store
	Done    *store.Store
}

// OpenStores opens the three stage stores under the configured state directory.
func OpenStores(ctx context.Context, cfg *config.Config) (Stores, error) {
	var (
		out Stores
		err error
	)
	if out.Pending, err = store.Open(ctx, cfg.StorePath(PendingStore), PendingStore); err != nil {
		return Stores{}, err
	}
	if out.Active, err = store.Open(ctx, cfg.StorePath(ActiveStore), ActiveStore); err != nil {
		_ = out.Pending.Close()
		return Stores{}, err
	}
	if out.Done, err = store.Open(ctx, cfg.StorePath(DoneStore), DoneStore); err != nil {
		_ = out.Pending.Close()
		_ = out.Active.Close()
		return Stores{}, err
	}
	return out, nil
}

// Close closes every store, joining their errors.
func (s Stores) Close() error {
	var errs []error
	for _, st := range []*store.Store{s.Pending, s.Active, s.Done} {
		if st == nil {
			continue
		}
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s store: %w", st.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Option configures a Queue.
type Option func(*Queue)

// WithNotifier sets the lifecycle notifier.
func WithNotifier(n notifications.Notifier) Option {
	return func(q *Queue) {
		if n != nil {
			q.notifier = n
		}
	}
}

// WithResolver enables restricted-catalog resolution.
func WithResolver(r Resolver) Option {
	return func(q *Queue) {
		q.resolver = r
	}
}

// WithLogger sets the queue logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithFreeSpace overrides the free-space probe used before each download.
func WithFreeSpace(fn func(path string) (uint64, error)) Option {
	return func(q *Queue) {
		if fn != nil {
			q.freeSpace = fn
		}
	}
}

// Queue admits download requests, runs them under the configured
// concurrency mode and moves them through the pending, active and done
// stores. A key lives in at most one store at a time.
type Queue struct {
	cfg       *config.Config
	engine    engine.Engine
	notifier  notifications.Notifier
	resolver  Resolver
	logger    *slog.Logger
	freeSpace func(path string) (uint64, error)

	pending *store.Store
	active  *store.Store
	done    *store.Store

	// mu serializes every store mutation and the jobs map.
	mu   sync.Mutex
	jobs map[string]*job.Job

	dispatch dispatcher
	runCtx   context.Context
	stopRun  context.CancelFunc
	wg       sync.WaitGroup
	closing  atomic.Bool
}

// New builds a queue over stores. Call Restore before admitting work.
func New(cfg *config.Config, stores Stores, eng engine.Engine, opts ...Option) (*Queue, error) {
	if cfg == nil {
		return nil, errors.New("queue requires a config")
	}
	if eng == nil {
		return nil, errors.New("queue requires an engine")
	}
	if stores.Pending == nil || stores.Active == nil || stores.Done == nil {
		return nil, errors.New("queue requires pending, active and done stores")
	}
	runCtx, stop := context.WithCancel(context.Background())
	q := &Queue{
		cfg:       cfg,
		engine:    eng,
		notifier:  notifications.Noop{},
		freeSpace: preflight.FreeBytes,
		pending:   stores.Pending,
		active:    stores.Active,
		done:      stores.Done,
		jobs:      make(map[string]*job.Job),
		runCtx:    runCtx,
		stopRun:   stop,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = logging.NewComponentLogger(q.logger, "queue")
	q.dispatch = newDispatcher(q, cfg.Downloads.Mode, cfg.Downloads.MaxConcurrent)
	return q, nil
}

// Snapshot is an ordered listing of the three stores.
type Snapshot struct {
	Active  []store.Entry `json:"active"`
	Pending []store.Entry `json:"pending"`
	Done    []store.Entry `json:"done"`
}

// Snapshot returns the current contents of every store. Active entries
// carry live progress from their running job.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := Snapshot{
		Active:  q.active.Items(),
		Pending: q.pending.Items(),
		Done:    q.done.Items(),
	}
	for i, entry := range snap.Active {
		if j, ok := q.jobs[entry.Key]; ok {
			snap.Active[i].Descriptor = j.Snapshot()
		}
	}
	for i, entry := range snap.Pending {
		if j, ok := q.jobs[entry.Key]; ok {
			snap.Pending[i].Descriptor = j.Snapshot()
		}
	}
	return snap
}

// Restore loads the pending and done stores into memory and re-admits the
// jobs that were active when the process last stopped. Re-admitted jobs
// start again from scratch.
func (q *Queue) Restore(ctx context.Context) error {
	q.mu.Lock()
	pendingEntries, err := q.pending.Load(ctx)
	if err != nil {
		q.mu.Unlock()
		return fmt.Errorf("load pending store: %w", err)
	}
	if _, err := q.done.Load(ctx); err != nil {
		q.mu.Unlock()
		return fmt.Errorf("load done store: %w", err)
	}
	for _, entry := range pendingEntries {
		q.jobs[entry.Key] = q.restoredJob(entry.Key, entry.Descriptor)
	}
	q.mu.Unlock()

	abandoned, err := q.active.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("read active store: %w", err)
	}
	if len(abandoned) > 0 {
		q.logger.Info("re-admitting interrupted downloads", logging.Int("count", len(abandoned)))
	}
	for _, entry := range abandoned {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		desc := entry.Descriptor
		res := q.Admit(ctx, Request{
			URL:                desc.URL,
			Quality:            desc.Quality,
			Format:             desc.Format,
			Folder:             desc.Folder,
			CustomNamePrefix:   desc.CustomNamePrefix,
			PlaylistStrictMode: desc.PlaylistStrictMode,
			PlaylistItemLimit:  desc.PlaylistItemLimit,
			AutoStart:          true,
		}, nil)
		if res.Failed() {
			logging.WarnWithContext(q.logger, "re-admission failed", "restore_failed",
				logging.String(logging.FieldJobKey, entry.Key),
				logging.String("msg", res.Msg),
				logging.String(logging.FieldErrorHint, "add the url again once the source is reachable"),
			)
		}
		q.dropStaleActive(ctx, entry.Key)
	}
	return nil
}

// dropStaleActive removes a durable active row that re-admission did not
// take over, so it is not retried on every start.
func (q *Queue) dropStaleActive(ctx context.Context, key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active.Exists(key) {
		return
	}
	if err := q.active.Delete(ctx, key); err != nil {
		q.logger.Warn("drop stale active record failed", logging.String(logging.FieldJobKey, key), logging.Error(err))
	}
}

// Close stops every running download and waits for the workers to exit.
// Active records are kept so the next start re-admits them.
func (q *Queue) Close(ctx context.Context) error {
	if !q.closing.CompareAndSwap(false, true) {
		return nil
	}
	q.stopRun()
	q.dispatch.close()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for workers: %w", ctx.Err())
	case <-time.After(30 * time.Second):
		return errors.New("timed out waiting for workers to exit")
	}
}

func (q *Queue) goRun(fn func()) {
	if q.closing.Load() {
		return
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		fn()
	}()
}
