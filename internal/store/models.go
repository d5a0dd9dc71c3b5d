package store

import "strings"

// Status is the lifecycle state of a download job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusPreparing   Status = "preparing"
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
	StatusCanceled    Status = "canceled"
)

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusPreparing:
		return StatusPreparing, true
	case StatusDownloading:
		return StatusDownloading, true
	case StatusFinished:
		return StatusFinished, true
	case StatusError:
		return StatusError, true
	case StatusCanceled:
		return StatusCanceled, true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further status transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusError || s == StatusCanceled
}

// PlaylistInfo carries the container identity propagated to playlist children.
type PlaylistInfo struct {
	ID         string `json:"playlist_id,omitempty"`
	Title      string `json:"playlist_title,omitempty"`
	Uploader   string `json:"playlist_uploader,omitempty"`
	UploaderID string `json:"playlist_uploader_id,omitempty"`
	Index      string `json:"playlist_index,omitempty"`
}

// Descriptor is the persisted form of a job. Pointer fields are unset until
// the engine reports them.
type Descriptor struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	URL                string        `json:"url"`
	Quality            string        `json:"quality"`
	Format             string        `json:"format"`
	Folder             string        `json:"folder,omitempty"`
	CustomNamePrefix   string        `json:"custom_name_prefix,omitempty"`
	PlaylistStrictMode bool          `json:"playlist_strict_mode,omitempty"`
	PlaylistItemLimit  int           `json:"playlist_item_limit,omitempty"`
	OutputTemplate     string        `json:"output_template,omitempty"`
	ChapterTemplate    string        `json:"chapter_template,omitempty"`
	Playlist           *PlaylistInfo `json:"playlist,omitempty"`

	Status   Status   `json:"status"`
	Msg      string   `json:"msg,omitempty"`
	Percent  *float64 `json:"percent,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	ETA      *int64   `json:"eta,omitempty"`
	Size     *int64   `json:"size,omitempty"`
	Filename string   `json:"filename,omitempty"`
	Error    string   `json:"error,omitempty"`

	// Timestamp is the creation time in Unix nanoseconds and orders reloads.
	Timestamp int64 `json:"timestamp"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.Playlist != nil {
		p := *d.Playlist
		out.Playlist = &p
	}
	out.Percent = clonePtr(d.Percent)
	out.Speed = clonePtr(d.Speed)
	out.ETA = clonePtr(d.ETA)
	out.Size = clonePtr(d.Size)
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Entry pairs a key with its descriptor.
type Entry struct {
	Key        string
	Descriptor Descriptor
}
