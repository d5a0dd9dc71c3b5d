package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tubeferry/internal/logging"
	"tubeferry/internal/services"
)

const (
	progressMarker = "[tubeferry:progress]"
	filepathMarker = "[tubeferry:filepath]"
	stderrTailSize = 20
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithExtraArgs appends arguments to every invocation.
func WithExtraArgs(args []string) Option {
	return func(c *Client) {
		c.extraArgs = append([]string(nil), args...)
	}
}

// WithTimeouts sets the network socket timeout and the probe wall-clock limit.
func WithTimeouts(socketSeconds, probeSeconds int) Option {
	return func(c *Client) {
		if socketSeconds > 0 {
			c.socketTimeout = socketSeconds
		}
		if probeSeconds > 0 {
			c.probeTimeout = time.Duration(probeSeconds) * time.Second
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary        string
	socketTimeout int
	probeTimeout  time.Duration
	extraArgs     []string
	exec          Executor
	logger        *slog.Logger
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:        binary,
		socketTimeout: 30,
		probeTimeout:  60 * time.Second,
		exec:          commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "engine")
	return client, nil
}

// Probe runs a flat metadata extraction of url.
func (c *Client) Probe(ctx context.Context, url string, opts ProbeOptions) (*Entry, error) {
	args := []string{
		"-J",
		"--flat-playlist",
		"--ignore-no-formats-error",
		"--no-warnings",
		"--socket-timeout", strconv.Itoa(c.socketTimeout),
	}
	if opts.StrictPlaylist {
		args = append(args, "--no-playlist")
	}
	if opts.ItemLimit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(opts.ItemLimit))
	}
	args = append(args, c.extraArgs...)
	args = append(args, "--", url)

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	logging.WithContext(ctx, c.logger).Debug("probing url", logging.String("url", url))
	stdout, stderr, err := c.exec.Output(probeCtx, c.binary, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Reason(services.ErrTimeout,
				fmt.Sprintf("metadata probe timed out after %s", c.probeTimeout), err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, services.Reason(services.ErrExtraction, lastErrorLine(strings.Split(string(stderr), "\n"), err), err)
	}

	var entry Entry
	if err := json.Unmarshal(stdout, &entry); err != nil {
		return nil, services.Wrap(services.ErrExtraction, "engine", "probe", "decode yt-dlp output", err)
	}
	return &entry, nil
}

// Search returns up to limit candidates from the YouTube search index.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	entry, err := c.Probe(ctx, fmt.Sprintf("ytsearch%d:%s", limit, query), ProbeOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entry.Entries))
	for _, e := range entry.Entries {
		if e.Key() == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Download runs yt-dlp for one item, forwarding parsed progress updates.
func (c *Client) Download(ctx context.Context, req DownloadRequest, onProgress func(Progress)) error {
	args := c.downloadArgs(req)
	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("starting yt-dlp", logging.String("url", req.URL), logging.Int("args", len(args)))

	var tail []string
	err := c.exec.Run(ctx, c.binary, args, func(stream Stream, line string) {
		if stream == StreamStderr {
			tail = append(tail, line)
			if len(tail) > stderrTailSize {
				tail = tail[len(tail)-stderrTailSize:]
			}
			return
		}
		update, ok := parseProgressLine(line)
		if !ok {
			return
		}
		if onProgress != nil {
			onProgress(update)
		}
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return services.Reason(services.ErrWorker, lastErrorLine(tail, err), err)
}

func (c *Client) downloadArgs(req DownloadRequest) []string {
	args := []string{
		"--newline",
		"--progress",
		"--no-simulate",
		"--no-colors",
		"--no-playlist",
		"--ignore-no-formats-error",
		"--socket-timeout", strconv.Itoa(c.socketTimeout),
		"--progress-template", "download:" + progressMarker + "%(progress)j",
		"--print", "after_move:" + filepathMarker + "%(filepath)s",
		"-P", "home:" + req.Directory,
	}
	if req.TempDir != "" {
		args = append(args, "-P", "temp:"+req.TempDir)
	}
	if req.OutputTemplate != "" {
		args = append(args, "-o", req.OutputTemplate)
	}
	if req.ChapterTemplate != "" {
		args = append(args, "-o", "chapter:"+req.ChapterTemplate)
	}
	if req.ItemLimit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(req.ItemLimit))
	}
	args = append(args, FormatArgs(req.Format, req.Quality)...)
	args = append(args, c.extraArgs...)
	return append(args, "--", req.URL)
}

// parseProgressLine decodes the marker lines emitted by the progress and
// print templates. Unknown JSON fields are dropped by the Progress struct.
func parseProgressLine(line string) (Progress, bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, progressMarker):
		var update Progress
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, progressMarker)), &update); err != nil {
			return Progress{}, false
		}
		return update, true
	case strings.HasPrefix(line, filepathMarker):
		path := strings.TrimSpace(strings.TrimPrefix(line, filepathMarker))
		if path == "" || path == "NA" {
			return Progress{}, false
		}
		return Progress{Status: Ptr("finished"), Filename: Ptr(path)}, true
	default:
		return Progress{}, false
	}
}

// lastErrorLine picks the most useful message from yt-dlp stderr.
func lastErrorLine(lines []string, fallback error) string {
	last := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			last = line
		}
	}
	if last != "" {
		return last
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	if fallback != nil {
		return fallback.Error()
	}
	return "yt-dlp failed"
}
