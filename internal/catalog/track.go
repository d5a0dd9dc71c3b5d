package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Track is the metadata the matcher works from. DurationMS is zero when
// the source could not supply it.
type Track struct {
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	DurationMS  int64    `json:"duration_ms,omitempty"`
	Album       string   `json:"album,omitempty"`
	TrackNumber int      `json:"track_number,omitempty"`
}

// MainArtist is the first credited artist, or "" when none are known.
func (t Track) MainArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Query is the plain "artists - name" search used for logging.
func (t Track) Query() string {
	return strings.Join(t.Artists, " ") + " - " + t.Name
}

var (
	featParenPattern  = regexp.MustCompile(`(?i)\s*\(.*?feat\..*?\)`)
	featTrailPattern  = regexp.MustCompile(`(?i)\s*feat\..*?$`)
	featuringPattern  = regexp.MustCompile(`(?i)\s*featuring.*?$`)
	remixParenPattern = regexp.MustCompile(`(?i)\s*\(.*?(remix|mix|version|edit).*?\)`)
)

// CleanName strips featured-artist annotations from name.
func CleanName(name string) string {
	name = featParenPattern.ReplaceAllString(name, "")
	name = featTrailPattern.ReplaceAllString(name, "")
	return featuringPattern.ReplaceAllString(name, "")
}

// StripRemix removes parenthesised remix, mix, version and edit notes.
func StripRemix(name string) string {
	return remixParenPattern.ReplaceAllString(name, "")
}

// Queries returns the search variants for t, most specific first and
// without duplicates.
func (t Track) Queries() []string {
	artists := strings.Join(t.Artists, " ")
	main := t.MainArtist()
	clean := CleanName(t.Name)
	noRemix := StripRemix(clean)

	var queries []string
	seen := make(map[string]struct{})
	add := func(format string, args ...any) {
		q := strings.TrimSpace(fmt.Sprintf(format, args...))
		if q == "" {
			return
		}
		if _, dup := seen[q]; dup {
			return
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}

	add("%s - %s", artists, clean)
	add("%s - %s", main, clean)
	add("%s - %s official", artists, clean)
	add("%s - %s audio", artists, clean)
	add("%s - %s official audio", main, clean)
	add("%s - %s music video", artists, clean)
	if clean != t.Name {
		add("%s - %s", artists, t.Name)
	}
	if noRemix != clean {
		add("%s - %s", artists, noRemix)
	}
	if t.Album != "" && !strings.Contains(lower(clean), lower(t.Album)) {
		add("%s - %s %s", artists, clean, t.Album)
	}
	add("%s", clean)
	add("%q %q", artists, clean)
	return queries
}
