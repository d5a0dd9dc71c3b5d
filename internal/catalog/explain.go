package catalog

import (
	"context"
	"fmt"

	"tubeferry/internal/services"
)

// Attempt is one search query and what it returned.
type Attempt struct {
	Query      string   `json:"query"`
	Candidates []Scored `json:"candidates,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// TrackPlan is the dry-run outcome for one track.
type TrackPlan struct {
	Track    Track     `json:"track"`
	Queries  []string  `json:"queries"`
	Attempts []Attempt `json:"attempts,omitempty"`
	MatchURL string    `json:"match_url,omitempty"`
	Match    string    `json:"match_title,omitempty"`
}

// Plan is the dry-run outcome for a reference.
type Plan struct {
	URL    string      `json:"url"`
	Type   ContentType `json:"type"`
	Tracks []TrackPlan `json:"tracks"`
}

// Explain resolves url without queueing anything, reporting the query
// variants tried and the candidate picked for each track. limit bounds the
// number of tracks when positive.
func (r *Resolver) Explain(ctx context.Context, url string, limit int) (Plan, error) {
	if !IsSpotifyURL(url) {
		return Plan{}, services.Reason(services.ErrValidation, fmt.Sprintf("%q is not a Spotify reference", url), nil)
	}
	ref := Classify(url)
	plan := Plan{URL: url, Type: ref.Type}
	if !ref.Music() {
		return plan, nil
	}
	tracks, err := r.metadata.Tracks(ctx, ref)
	if err != nil {
		return plan, services.Reason(services.ErrResolution, "Failed to extract Spotify metadata: "+err.Error(), err)
	}
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	for _, track := range tracks {
		tp := TrackPlan{Track: track, Queries: track.Queries()}
		outcome := r.search(ctx, track, func(query string, ranked []Scored, err error) {
			a := Attempt{Query: query, Candidates: ranked}
			if err != nil {
				a.Error = err.Error()
			}
			tp.Attempts = append(tp.Attempts, a)
		})
		if outcome.found {
			tp.MatchURL = outcome.best.Key()
			tp.Match = outcome.best.Title
		}
		plan.Tracks = append(plan.Tracks, tp)
	}
	if err := ctx.Err(); err != nil {
		return plan, err
	}
	return plan, nil
}
