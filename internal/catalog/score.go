package catalog

import (
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tubeferry/internal/engine"
)

var lowerCaser = cases.Lower(language.Und)

func lower(s string) string {
	return lowerCaser.String(s)
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// Score rates how likely candidate is the upload of track.
func Score(candidate engine.Entry, track Track) int {
	score := 0
	title := lower(candidate.Title)
	uploader := lower(candidate.DisplayUploader())
	duration := candidate.Duration

	if containsAny(uploader, "official", "records", "music", "vevo") {
		score += 30
	}
	if containsAny(title, "official", "music video", "audio") {
		score += 20
	}

	views := candidate.ViewCount
	if views > 1_000 {
		score += 10
	}
	if views > 100_000 {
		score += 10
	}
	if views > 1_000_000 {
		score += 5
	}

	if track.DurationMS > 0 && duration > 0 {
		diff := math.Abs(duration - float64(track.DurationMS)/1000)
		switch {
		case diff < 10:
			score += 25
		case diff < 30:
			score += 15
		case diff < 60:
			score += 5
		case diff > 300:
			score -= 15
		}
	}

	if duration > 0 {
		if duration < 30 {
			score -= 20
		} else if duration > 600 {
			score -= 10
		}
	}

	if !containsAny(lower(track.Name), "remix", "mix", "edit") &&
		containsAny(title, "live", "cover", "remix", "karaoke", "instrumental") {
		score -= 15
	}
	if containsAny(title, "audio", "lyrics", "music video") {
		score += 10
	}
	return score
}

// Scored pairs a candidate with its score.
type Scored struct {
	Entry engine.Entry `json:"entry"`
	Score int          `json:"score"`
}

// Rank scores candidates and orders them best first. Equal scores keep
// their search order.
func Rank(candidates []engine.Entry, track Track) []Scored {
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Scored{Entry: c, Score: Score(c, track)})
	}
	slices.SortStableFunc(out, func(a, b Scored) int {
		return b.Score - a.Score
	})
	return out
}

// SelectBest picks the winning candidate. A lone candidate is returned
// without scoring.
func SelectBest(candidates []engine.Entry, track Track) (engine.Entry, bool) {
	switch len(candidates) {
	case 0:
		return engine.Entry{}, false
	case 1:
		return candidates[0], true
	}
	return Rank(candidates, track)[0].Entry, true
}
