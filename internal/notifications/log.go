package notifications

import (
	"context"
	"log/slog"
	"sync"

	"tubeferry/internal/logging"
	"tubeferry/internal/store"
)

type logNotifier struct {
	logger *slog.Logger

	mu       sync.Mutex
	samplers map[string]*logging.ProgressSampler
}

// NewLogNotifier records lifecycle events as structured logs. Progress
// updates are sampled per job so a download logs every ten percent.
func NewLogNotifier(logger *slog.Logger) Notifier {
	return &logNotifier{
		logger:   logging.NewComponentLogger(logger, "notifier"),
		samplers: make(map[string]*logging.ProgressSampler),
	}
}

func (l *logNotifier) Added(ctx context.Context, key string, desc store.Descriptor) error {
	attrs := []logging.Attr{
		logging.String(logging.FieldJobKey, key),
		logging.String("title", desc.Title),
		logging.String("status", string(desc.Status)),
	}
	if desc.Error != "" {
		attrs = append(attrs, logging.String("error", desc.Error))
	}
	logging.WithContext(ctx, l.logger).Info("download added", logging.Args(attrs...)...)
	return nil
}

func (l *logNotifier) Updated(ctx context.Context, desc store.Descriptor) error {
	percent := -1.0
	if desc.Percent != nil {
		percent = *desc.Percent
	}
	if !l.sampler(desc.URL).ShouldLog(percent, string(desc.Status)) {
		return nil
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldJobKey, desc.URL),
		logging.String("status", string(desc.Status)),
	}
	if percent >= 0 {
		attrs = append(attrs, logging.Float64("percent", percent))
	}
	if desc.Msg != "" {
		attrs = append(attrs, logging.String("msg", desc.Msg))
	}
	logging.WithContext(ctx, l.logger).Debug("download progress", logging.Args(attrs...)...)
	return nil
}

func (l *logNotifier) Completed(ctx context.Context, key string, desc store.Descriptor) error {
	l.forget(key)
	logger := logging.WithContext(ctx, l.logger)
	if desc.Status != store.StatusFinished {
		logging.WarnWithContext(logger, "download failed", "download_failed",
			logging.String(logging.FieldJobKey, key),
			logging.String("msg", desc.Msg),
			logging.String(logging.FieldErrorHint, "check the url with yt-dlp directly and retry"),
		)
		return nil
	}
	logger.Info("download completed",
		logging.String(logging.FieldJobKey, key),
		logging.String("filename", desc.Filename),
	)
	return nil
}

func (l *logNotifier) Canceled(ctx context.Context, key string) error {
	l.forget(key)
	logging.WithContext(ctx, l.logger).Info("download canceled", logging.String(logging.FieldJobKey, key))
	return nil
}

func (l *logNotifier) Cleared(ctx context.Context, key string) error {
	logging.WithContext(ctx, l.logger).Info("download cleared", logging.String(logging.FieldJobKey, key))
	return nil
}

func (l *logNotifier) sampler(key string) *logging.ProgressSampler {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.samplers[key]
	if !ok {
		s = logging.NewProgressSampler(10)
		l.samplers[key] = s
	}
	return s
}

func (l *logNotifier) forget(key string) {
	l.mu.Lock()
	delete(l.samplers, key)
	l.mu.Unlock()
}
