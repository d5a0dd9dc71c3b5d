package testsupport

import (
	"context"
	"testing"

	"tubeferry/internal/config"
	"tubeferry/internal/queue"
)

// MustOpenStores opens the three queue stores for tests and registers cleanup.
func MustOpenStores(t testing.TB, cfg *config.Config) queue.Stores {
	t.Helper()

	stores, err := queue.OpenStores(context.Background(), cfg)
	if err != nil {
		t.Fatalf("queue.OpenStores: %v", err)
	}
	t.Cleanup(func() {
		_ = stores.Close()
	})
	return stores
}
