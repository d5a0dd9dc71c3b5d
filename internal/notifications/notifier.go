package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tubeferry/internal/config"
	"tubeferry/internal/store"
)

// Notifier receives queue lifecycle events. Errors are logged by the caller
// and never abort queue processing.
type Notifier interface {
	Added(ctx context.Context, key string, desc store.Descriptor) error
	Updated(ctx context.Context, desc store.Descriptor) error
	Completed(ctx context.Context, key string, desc store.Descriptor) error
	Canceled(ctx context.Context, key string) error
	Cleared(ctx context.Context, key string) error
}

// New builds the daemon notifier: structured logs always, ntfy pushes when a
// topic is configured.
func New(cfg *config.Config, logger *slog.Logger) Notifier {
	notifiers := []Notifier{NewLogNotifier(logger)}
	if cfg == nil {
		return Multi(notifiers...)
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		notifiers = append(notifiers, &ntfyNotifier{
			endpoint:  topic,
			client:    &http.Client{Timeout: timeout},
			completed: cfg.Notifications.Completed,
			errors:    cfg.Notifications.Errors,
		})
	}
	return Multi(notifiers...)
}

type multi []Notifier

// Multi fans every event out to each notifier and joins their errors.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) each(fn func(Notifier) error) error {
	var errs []error
	for _, n := range m {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Added(ctx context.Context, key string, desc store.Descriptor) error {
	return m.each(func(n Notifier) error { return n.Added(ctx, key, desc) })
}

func (m multi) Updated(ctx context.Context, desc store.Descriptor) error {
	return m.each(func(n Notifier) error { return n.Updated(ctx, desc) })
}

func (m multi) Completed(ctx context.Context, key string, desc store.Descriptor) error {
	return m.each(func(n Notifier) error { return n.Completed(ctx, key, desc) })
}

func (m multi) Canceled(ctx context.Context, key string) error {
	return m.each(func(n Notifier) error { return n.Canceled(ctx, key) })
}

func (m multi) Cleared(ctx context.Context, key string) error {
	return m.each(func(n Notifier) error { return n.Cleared(ctx, key) })
}

// Noop discards every event.
type Noop struct{}

func (Noop) Added(context.Context, string, store.Descriptor) error     { return nil }
func (Noop) Updated(context.Context, store.Descriptor) error           { return nil }
func (Noop) Completed(context.Context, string, store.Descriptor) error { return nil }
func (Noop) Canceled(context.Context, string) error                    { return nil }
func (Noop) Cleared(context.Context, string) error                     { return nil }
