package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tubeferry/internal/engine"
	"tubeferry/internal/job"
	"tubeferry/internal/logging"
	"tubeferry/internal/services"
	"tubeferry/internal/store"
	"tubeferry/internal/textutil"
)

const upcomingLayout = "2006-01-02 15:04:05 -0700"

// Admit expands req into jobs. visited guards against containers that
// reference themselves; pass nil for a fresh admission. Failures come back
// as a Result rather than an error.
func (q *Queue) Admit(ctx context.Context, req Request, visited map[string]struct{}) Result {
	if visited == nil {
		visited = make(map[string]struct{})
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	req = q.withDefaults(req)
	logger := logging.WithContext(ctx, q.logger)

	if req.URL == "" {
		return Fail(services.Reason(services.ErrValidation, "A URL is required.", nil))
	}
	logger.Info("admitting url",
		logging.String("url", req.URL),
		logging.String("quality", req.Quality),
		logging.String("format", req.Format),
		logging.String("folder", req.Folder),
		logging.Bool("auto_start", req.AutoStart),
	)
	if _, seen := visited[req.URL]; seen {
		logger.Debug("url already visited in this admission", logging.String("url", req.URL))
		return OK("")
	}
	visited[req.URL] = struct{}{}

	catalog := q.resolver != nil && q.resolver.Handles(req.URL)
	if catalog {
		submit := func(ctx context.Context, child Request) Result {
			return q.Admit(ctx, child, visited)
		}
		if res, handled := q.resolver.Resolve(ctx, req, submit); handled {
			return res
		}
		logger.Info("catalog resolver declined url, trying direct extraction", logging.String("url", req.URL))
	}

	entry, err := q.engine.Probe(ctx, req.URL, engine.ProbeOptions{
		StrictPlaylist: req.PlaylistStrictMode,
		ItemLimit:      req.PlaylistItemLimit,
	})
	if err != nil {
		msg := err.Error()
		if catalog {
			msg = q.resolver.Hint(msg)
		}
		logging.WarnWithContext(logger, "extraction failed", "probe_failed",
			logging.String("url", req.URL),
			logging.String("msg", msg),
			logging.String(logging.FieldErrorHint, "run yt-dlp against the url directly to inspect the failure"),
		)
		return Fail(services.Reason(services.ErrExtraction, msg, err))
	}
	return q.admitEntry(ctx, req, entry, nil, visited)
}

func (q *Queue) withDefaults(req Request) Request {
	req.URL = strings.TrimSpace(req.URL)
	if strings.TrimSpace(req.Quality) == "" {
		req.Quality = q.cfg.Downloads.DefaultQuality
	}
	if strings.TrimSpace(req.Format) == "" {
		req.Format = q.cfg.Downloads.DefaultFormat
	}
	if req.PlaylistItemLimit < 0 {
		req.PlaylistItemLimit = 0
	}
	return req
}

func (q *Queue) admitEntry(ctx context.Context, req Request, entry *engine.Entry, playlist *store.PlaylistInfo, visited map[string]struct{}) Result {
	if entry == nil {
		return Fail(services.Reason(services.ErrAdmission, "Invalid/empty data was given.", nil))
	}

	kind := entry.Kind()
	switch {
	case strings.HasPrefix(kind, "url"):
		child := req
		child.URL = entry.URL
		return q.Admit(ctx, child, visited)
	case kind == "playlist":
		return q.admitPlaylist(ctx, req, entry, visited)
	case kind == "video":
		return q.admitVideo(ctx, req, entry, playlist)
	default:
		return Fail(services.Reason(services.ErrAdmission, fmt.Sprintf("Unsupported resource %q", kind), nil))
	}
}

func (q *Queue) admitPlaylist(ctx context.Context, req Request, entry *engine.Entry, visited map[string]struct{}) Result {
	entries := entry.Entries
	total := max(len(entries), entry.PlaylistCount)
	logger := logging.WithContext(ctx, q.logger)
	logger.Info("playlist detected", logging.String("title", entry.Title), logging.Int("entries", total))
	if req.PlaylistItemLimit > 0 && len(entries) > req.PlaylistItemLimit {
		entries = entries[:req.PlaylistItemLimit]
	}

	var failures []string
	for i := range entries {
		child := entries[i]
		child.Type = "video"
		info := &store.PlaylistInfo{
			ID:         entry.ID,
			Title:      entry.Title,
			Uploader:   entry.Uploader,
			UploaderID: entry.UploaderID,
			Index:      textutil.PadIndex(i+1, total),
		}
		res := q.admitEntry(ctx, req, &child, info, visited)
		if res.Failed() && res.Msg != "" {
			failures = append(failures, res.Msg)
		}
	}
	if len(failures) > 0 {
		return Fail(services.Reason(services.ErrAdmission, strings.Join(failures, ", "), nil))
	}
	return OK("")
}

func (q *Queue) admitVideo(ctx context.Context, req Request, entry *engine.Entry, playlist *store.PlaylistInfo) Result {
	key := entry.Key()
	if key == "" {
		return Fail(services.Reason(services.ErrAdmission, "Invalid/empty data was given.", nil))
	}
	ctx = services.WithJobKey(ctx, key)
	logger := logging.WithContext(ctx, q.logger)

	q.mu.Lock()
	if q.active.Exists(key) {
		q.mu.Unlock()
		logger.Debug("already downloading")
		return OK("")
	}
	if q.pending.Exists(key) {
		q.mu.Unlock()
		if req.AutoStart {
			return q.StartPending(ctx, []string{key})
		}
		logger.Debug("already pending")
		return OK("")
	}
	dir, err := q.downloadDir(req.Quality, req.Format, req.Folder, true)
	if err != nil {
		q.mu.Unlock()
		return Fail(err)
	}
	desc := q.describe(req, entry, key, playlist)
	j := q.newJob(key, desc, dir)

	target := q.pending
	if req.AutoStart {
		target = q.active
	}
	if err := target.Put(ctx, key, desc); err != nil {
		q.mu.Unlock()
		return Fail(services.Wrap(services.ErrAdmission, "queue", "persist job", key, err))
	}
	// The done record goes only once the replacement is persisted, so a
	// rejected re-admission leaves the finished entry in place.
	cleared := false
	if q.done.Exists(key) {
		if err := q.done.Delete(ctx, key); err != nil {
			if rbErr := target.Delete(ctx, key); rbErr != nil {
				logging.ErrorWithContext(logger, "roll back admitted record failed", "store_write_failed",
					logging.Error(rbErr),
					logging.String(logging.FieldErrorHint, "check the state directory is writable"),
				)
			}
			q.mu.Unlock()
			return Fail(services.Wrap(services.ErrAdmission, "queue", "replace done record", key, err))
		}
		cleared = true
	}
	q.jobs[key] = j
	q.mu.Unlock()

	if cleared {
		q.notifyCleared(ctx, key)
	}
	if err := q.notifier.Added(ctx, key, desc); err != nil {
		logger.Debug("added notification failed", logging.Error(err))
	}
	if req.AutoStart {
		q.dispatch.dispatch(ctx, j)
	}
	return OK("")
}

// describe builds the persisted descriptor, including the output templates
// the job will run with.
func (q *Queue) describe(req Request, entry *engine.Entry, key string, playlist *store.PlaylistInfo) store.Descriptor {
	id := entry.ID
	title := entry.Title
	if title == "" {
		title = id
	}
	prefix := req.CustomNamePrefix
	if prefix != "" {
		id = prefix + "." + id
		title = prefix + "." + title
	}

	output := q.cfg.Downloads.OutputTemplate
	if prefix != "" {
		output = prefix + "." + output
	}
	if playlist != nil {
		if q.cfg.Downloads.OutputTemplatePlaylist != "" {
			output = q.cfg.Downloads.OutputTemplatePlaylist
		}
		output = playlistTemplate(output, playlist)
	}

	errText := ""
	if entry.IsUpcoming() {
		errText = "Live stream is scheduled to start at " + time.Unix(entry.ReleaseTimestamp, 0).Format(upcomingLayout)
	} else if entry.Msg != "" {
		errText = entry.Msg
	}

	return store.Descriptor{
		ID:                 id,
		Title:              title,
		URL:                key,
		Quality:            req.Quality,
		Format:             req.Format,
		Folder:             req.Folder,
		CustomNamePrefix:   prefix,
		PlaylistStrictMode: req.PlaylistStrictMode,
		PlaylistItemLimit:  req.PlaylistItemLimit,
		OutputTemplate:     output,
		ChapterTemplate:    q.cfg.Downloads.OutputTemplateChapter,
		Playlist:           playlist,
		Status:             store.StatusPending,
		Error:              errText,
		Timestamp:          time.Now().UnixNano(),
	}
}

// playlistTemplate substitutes the playlist fields yt-dlp would not know
// about when downloading a single child.
func playlistTemplate(tmpl string, p *store.PlaylistInfo) string {
	return strings.NewReplacer(
		"%(playlist)s", p.ID,
		"%(playlist_id)s", p.ID,
		"%(playlist_index)s", p.Index,
		"%(playlist_title)s", p.Title,
		"%(playlist_uploader)s", p.Uploader,
		"%(playlist_uploader_id)s", p.UploaderID,
	).Replace(tmpl)
}

func (q *Queue) newJob(key string, desc store.Descriptor, dir string) *job.Job {
	req := engine.DownloadRequest{
		URL:             key,
		Directory:       dir,
		TempDir:         q.cfg.Paths.TempDir,
		OutputTemplate:  desc.OutputTemplate,
		ChapterTemplate: desc.ChapterTemplate,
		Format:          desc.Format,
		Quality:         desc.Quality,
		ItemLimit:       desc.PlaylistItemLimit,
	}
	return job.New(key, desc, req, q.engine, q.logger)
}

// restoredJob rebuilds a pending job from its stored descriptor. A folder
// that no longer passes the path policy falls back to the root so the job
// can still be listed and canceled.
func (q *Queue) restoredJob(key string, desc store.Descriptor) *job.Job {
	dir, err := q.downloadDir(desc.Quality, desc.Format, desc.Folder, false)
	if err != nil {
		q.logger.Warn("restored job folder rejected", logging.String(logging.FieldJobKey, key), logging.Error(err))
		dir, _ = q.downloadDir(desc.Quality, desc.Format, "", false)
	}
	return q.newJob(key, desc, dir)
}

func (q *Queue) notifyCleared(ctx context.Context, key string) {
	if err := q.notifier.Cleared(ctx, key); err != nil {
		q.logger.Debug("cleared notification failed", logging.String(logging.FieldJobKey, key), logging.Error(err))
	}
}
