package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is an ordered, durable mapping from job key to descriptor. Reads are
// served from the in-memory mirror; writes go to SQLite first.
type Store struct {
	name string
	path string
	db   *sql.DB

	mu    sync.RWMutex
	order []string
	items map[string]Descriptor
}

// Open initializes or connects to the store database at path. The returned
// store has an empty mirror; call Load to populate it from disk.
func Open(ctx context.Context, path, name string) (*Store, error) {
	ctx = ensureContext(ctx)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s store directory: %w", name, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{
		name:  name,
		path:  path,
		db:    db,
		items: make(map[string]Descriptor),
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Name returns the store label (pending, queue, done).
func (s *Store) Name() string { return s.name }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadAll reads every durable entry ordered by creation time. It does not
// touch the in-memory mirror.
func (s *Store) LoadAll(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := s.db.QueryContext(ctx, "SELECT key, descriptor FROM entries ORDER BY created_at ASC, rowid ASC")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key string
				raw string
			)
			if err := rows.Scan(&key, &raw); err != nil {
				return err
			}
			var desc Descriptor
			if err := json.Unmarshal([]byte(raw), &desc); err != nil {
				return fmt.Errorf("decode %s entry %q: %w", s.name, key, err)
			}
			entries = append(entries, Entry{Key: key, Descriptor: desc})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load %s store: %w", s.name, err)
	}
	return entries, nil
}

// Load replaces the in-memory mirror with the durable contents.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	entries, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = make([]string, 0, len(entries))
	s.items = make(map[string]Descriptor, len(entries))
	for _, entry := range entries {
		s.order = append(s.order, entry.Key)
		s.items[entry.Key] = entry.Descriptor.Clone()
	}
	return entries, nil
}

// Put durably writes desc under key, then upserts the mirror. New keys are
// appended to the iteration order; existing keys keep their position.
func (s *Store) Put(ctx context.Context, key string, desc Descriptor) error {
	payload, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode %s entry %q: %w", s.name, key, err)
	}
	err = s.exec(ctx,
		`INSERT INTO entries (key, created_at, descriptor) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET descriptor = excluded.descriptor`,
		key, desc.Timestamp, string(payload),
	)
	if err != nil {
		return fmt.Errorf("put %s entry %q: %w", s.name, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = desc.Clone()
	return nil
}

// Get returns a copy of the descriptor stored under key.
func (s *Store) Get(key string) (Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	desc, ok := s.items[key]
	if !ok {
		return Descriptor{}, false
	}
	return desc.Clone(), true
}

// Exists reports whether key is present in the mirror.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// Delete removes key from the durable store and the mirror.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.exec(ctx, "DELETE FROM entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s entry %q: %w", s.name, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return nil
	}
	delete(s.items, key)
	if idx := slices.Index(s.order, key); idx >= 0 {
		s.order = slices.Delete(s.order, idx, idx+1)
	}
	return nil
}

// Len returns the number of mirrored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Items returns the mirrored entries in insertion order.
func (s *Store) Items() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, Entry{Key: key, Descriptor: s.items[key].Clone()})
	}
	return out
}

// Keys returns the mirrored keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// All yields entries in insertion order from a snapshot taken when iteration
// starts, so callers may mutate the store while ranging.
func (s *Store) All() iter.Seq2[string, Descriptor] {
	return func(yield func(string, Descriptor) bool) {
		for _, entry := range s.Items() {
			if !yield(entry.Key, entry.Descriptor) {
				return
			}
		}
	}
}
