package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tubeferry/internal/config"
	"tubeferry/internal/engine"
	"tubeferry/internal/logging"
	"tubeferry/internal/queue"
	"tubeferry/internal/services"
	"tubeferry/internal/textutil"
)

const (
	drmHint   = " Most Spotify content is DRM-protected and cannot be downloaded. Only some podcast content may be accessible."
	blockHint = " Spotify has blocked access to this content. Try using official Spotify features instead."
)

// Resolver implements queue.Resolver for Spotify references.
type Resolver struct {
	metadata    Metadata
	searcher    engine.Searcher
	maxAttempts int
	perQuery    int
	logger      *slog.Logger
}

var _ queue.Resolver = (*Resolver)(nil)

// NewResolver wires metadata lookups and YouTube search together.
func NewResolver(cfg config.Spotify, metadata Metadata, searcher engine.Searcher, logger *slog.Logger) *Resolver {
	attempts := cfg.MaxSearchAttempts
	if attempts <= 0 {
		attempts = 5
	}
	perQuery := cfg.SearchResults
	if perQuery <= 0 {
		perQuery = 5
	}
	return &Resolver{
		metadata:    metadata,
		searcher:    searcher,
		maxAttempts: attempts,
		perQuery:    perQuery,
		logger:      logging.NewComponentLogger(logger, "catalog"),
	}
}

// Handles reports whether url is a Spotify reference.
func (r *Resolver) Handles(url string) bool {
	return IsSpotifyURL(url)
}

// Hint appends Spotify-specific advice to an extraction failure.
func (r *Resolver) Hint(msg string) string {
	switch {
	case strings.Contains(msg, "DRM"):
		return msg + drmHint
	case strings.Contains(strings.ToLower(msg), "blocked") || strings.Contains(msg, "403"):
		return msg + blockHint
	default:
		return msg
	}
}

// Resolve admits the YouTube matches for req.URL through submit. Shows,
// episodes and unrecognised references are declined.
func (r *Resolver) Resolve(ctx context.Context, req queue.Request, submit queue.Submit) (queue.Result, bool) {
	ref := Classify(req.URL)
	logger := logging.WithContext(ctx, r.logger)
	if !ref.Music() {
		logger.Info("spotify content is not music, attempting direct extraction; DRM may prevent it",
			logging.String("url", req.URL),
			logging.String("content_type", string(ref.Type)),
		)
		return queue.Result{}, false
	}
	logger.Info("processing spotify reference", logging.String("url", req.URL), logging.String("content_type", string(ref.Type)))

	tracks, err := r.metadata.Tracks(ctx, ref)
	if err != nil {
		logging.ErrorWithContext(logger, "spotify metadata extraction failed", "spotify_metadata_failed",
			logging.String("url", req.URL),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check spotify credentials and network access"),
		)
		return queue.Fail(services.Reason(services.ErrResolution, "Failed to extract Spotify metadata: "+err.Error(), err)), true
	}
	if len(tracks) == 0 {
		return queue.Fail(services.Reason(services.ErrResolution, fmt.Sprintf(
			"No tracks found in Spotify %s. This might require Spotify API credentials (SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET).",
			ref.Type), nil)), true
	}
	logger.Info("spotify tracks found", logging.Int("tracks", len(tracks)))
	if req.PlaylistItemLimit > 0 && len(tracks) > req.PlaylistItemLimit {
		logger.Info("limiting spotify tracks", logging.Int("limit", req.PlaylistItemLimit))
		tracks = tracks[:req.PlaylistItemLimit]
	}

	queued, failed := 0, 0
	for i, track := range tracks {
		logger.Info("resolving spotify track",
			logging.Int("index", i+1),
			logging.Int("total", len(tracks)),
			logging.String("track", track.Query()),
		)
		match, ok := r.Match(ctx, track)
		if ctx.Err() != nil {
			return queue.Fail(ctx.Err()), true
		}
		if !ok {
			failed++
			logging.WarnWithContext(logger, "no youtube match for spotify track", "resolution_miss",
				logging.String("track", track.Query()),
				logging.String(logging.FieldErrorHint, "queue the youtube url directly"),
			)
			continue
		}

		child := req
		child.URL = match.Key()
		child.PlaylistStrictMode = true
		child.PlaylistItemLimit = 0
		if ref.Type != TypeTrack {
			child.CustomNamePrefix = trackPrefix(req.CustomNamePrefix, i+1, track)
		}
		res := submit(ctx, child)
		if res.Failed() {
			failed++
			logging.WarnWithContext(logger, "failed to queue resolved track", "resolution_submit_failed",
				logging.String("track", track.Query()),
				logging.String("msg", res.Msg),
				logging.String(logging.FieldErrorHint, "inspect the admission error for the matched video"),
			)
			continue
		}
		queued++
		logger.Info("queued spotify track", logging.String("track", track.Query()), logging.String("url", child.URL))
	}

	if queued == 0 {
		return queue.Fail(services.Reason(services.ErrResolution,
			fmt.Sprintf("Could not find any tracks from Spotify %s on YouTube", ref.Type), nil)), true
	}
	msg := fmt.Sprintf("Successfully queued %d tracks from Spotify %s", queued, ref.Type)
	if failed > 0 {
		msg += fmt.Sprintf(" (%d tracks could not be found on YouTube)", failed)
	}
	return queue.OK(msg), true
}

// trackPrefix names a container track "NN_<artist>_<name>", joined onto
// any caller prefix and made safe for file names.
func trackPrefix(base string, index int, track Track) string {
	own := fmt.Sprintf("%02d_%s_%s", index, track.MainArtist(), track.Name)
	return textutil.SanitizeFileName(textutil.JoinPrefix(base, own))
}

// Match searches YouTube for track, trying query variants until one yields
// candidates.
func (r *Resolver) Match(ctx context.Context, track Track) (engine.Entry, bool) {
	attempt := r.search(ctx, track, nil)
	return attempt.best, attempt.found
}

type searchOutcome struct {
	best  engine.Entry
	found bool
}

// search runs the query ladder. observe, when set, sees every query with its
// ranked candidates.
func (r *Resolver) search(ctx context.Context, track Track, observe func(query string, ranked []Scored, err error)) searchOutcome {
	queries := track.Queries()
	if len(queries) > r.maxAttempts {
		queries = queries[:r.maxAttempts]
	}
	logger := logging.WithContext(ctx, r.logger)
	for attempt, query := range queries {
		if ctx.Err() != nil {
			return searchOutcome{}
		}
		logger.Debug("searching youtube",
			logging.String("query", query),
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", r.maxAttempts),
		)
		candidates, err := r.searcher.Search(ctx, query, r.perQuery)
		if observe != nil {
			observe(query, Rank(candidates, track), err)
		}
		if err != nil {
			logger.Debug("youtube search attempt failed", logging.String("query", query), logging.Error(err))
			continue
		}
		if best, ok := SelectBest(candidates, track); ok {
			logger.Info("found youtube match",
				logging.String("title", best.Title),
				logging.String("url", best.Key()),
			)
			return searchOutcome{best: best, found: true}
		}
	}
	return searchOutcome{}
}
