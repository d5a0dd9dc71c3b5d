package job

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tubeferry/internal/engine"
)

const statusBuffer = 64

// Worker runs one yt-dlp download and streams its status over a channel.
// The subprocess lives in its own process group; killing the worker takes
// the whole group down.
type Worker struct {
	downloader engine.Downloader
	req        engine.DownloadRequest

	updates chan engine.Progress
	done    chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	alive  bool
}

func newWorker(downloader engine.Downloader, req engine.DownloadRequest) *Worker {
	return &Worker{
		downloader: downloader,
		req:        req,
		updates:    make(chan engine.Progress, statusBuffer),
		done:       make(chan struct{}),
	}
}

// Updates returns the status channel; it is closed when the worker exits.
func (w *Worker) Updates() <-chan engine.Progress {
	return w.updates
}

// Done is closed once the download has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Alive reports whether the download is still running.
func (w *Worker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alive
}

func (w *Worker) start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.alive = true
	w.mu.Unlock()

	go func() {
		defer close(w.done)
		defer close(w.updates)
		defer cancel()

		terminal := false
		err := w.downloader.Download(runCtx, w.req, func(p engine.Progress) {
			if p.Status != nil && (*p.Status == "finished" || *p.Status == "error") {
				terminal = true
			}
			w.send(runCtx, p)
		})

		w.mu.Lock()
		w.alive = false
		w.mu.Unlock()

		switch {
		case err != nil && errors.Is(err, context.Canceled):
		case err != nil:
			msg := strings.TrimSpace(err.Error())
			w.send(runCtx, engine.Progress{Status: engine.Ptr("error"), Msg: engine.Ptr(msg)})
		case !terminal:
			w.send(runCtx, engine.Progress{Status: engine.Ptr("finished")})
		}
	}()
}

// send drops the update once the worker is killed so a stopped relay cannot
// wedge the download goroutine.
func (w *Worker) send(ctx context.Context, p engine.Progress) {
	select {
	case w.updates <- p:
	case <-ctx.Done():
	}
}

// Kill terminates the download if it is still running.
func (w *Worker) Kill() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
