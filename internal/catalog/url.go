package catalog

import (
	"regexp"
	"strings"
)

// ContentType is the kind of Spotify resource a reference points at.
type ContentType string

const (
	TypeTrack    ContentType = "track"
	TypeAlbum    ContentType = "album"
	TypePlaylist ContentType = "playlist"
	TypeShow     ContentType = "show"
	TypeEpisode  ContentType = "episode"
	TypeUnknown  ContentType = "unknown"
)

// Ref identifies a Spotify resource.
type Ref struct {
	Type ContentType
	ID   string
}

// Music reports whether the resolver matches this type against YouTube.
func (r Ref) Music() bool {
	switch r.Type {
	case TypeTrack, TypeAlbum, TypePlaylist:
		return true
	default:
		return false
	}
}

var (
	spotifyURLPattern = regexp.MustCompile(`(?i)^(?:https?://open\.spotify\.com/|spotify:)`)
	spotifyRefPattern = regexp.MustCompile(
		`(?:open\.spotify\.com/(?:intl-[a-zA-Z]{2}(?:-[a-zA-Z]{2})?/)?(track|album|playlist|show|episode)/|spotify:(track|album|playlist|show|episode):)([a-zA-Z0-9]+)`)
)

// IsSpotifyURL reports whether url is a Spotify web link or URI.
func IsSpotifyURL(url string) bool {
	return spotifyURLPattern.MatchString(strings.TrimSpace(url))
}

// Classify extracts the content type and id from url without any network
// access. Unrecognised references come back as TypeUnknown.
func Classify(url string) Ref {
	m := spotifyRefPattern.FindStringSubmatch(url)
	if m == nil {
		return Ref{Type: TypeUnknown}
	}
	kind := m[1]
	if kind == "" {
		kind = m[2]
	}
	return Ref{Type: ContentType(kind), ID: m[3]}
}
