package engine

import (
	"context"
	"strings"
)

// Entry is the subset of a yt-dlp info dict the queue relies on. Flat probes
// leave most nested fields empty.
type Entry struct {
	Type             string  `json:"_type"`
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	URL              string  `json:"url"`
	WebpageURL       string  `json:"webpage_url"`
	Uploader         string  `json:"uploader"`
	UploaderID       string  `json:"uploader_id"`
	Channel          string  `json:"channel"`
	Duration         float64 `json:"duration"`
	ViewCount        int64   `json:"view_count"`
	LiveStatus       string  `json:"live_status"`
	ReleaseTimestamp int64   `json:"release_timestamp"`
	Msg              string  `json:"msg"`
	PlaylistCount    int     `json:"playlist_count"`
	Entries          []Entry `json:"entries"`
}

// Key returns the canonical URL identifying the entry.
func (e Entry) Key() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.URL
}

// Kind returns the entry type, treating a typeless entry as a single video.
func (e Entry) Kind() string {
	if e.Type == "" {
		return "video"
	}
	return e.Type
}

// IsUpcoming reports whether the entry is a scheduled live event.
func (e Entry) IsUpcoming() bool {
	return e.LiveStatus == "is_upcoming" && e.ReleaseTimestamp > 0
}

// DisplayUploader prefers the uploader name and falls back to the channel.
func (e Entry) DisplayUploader() string {
	if strings.TrimSpace(e.Uploader) != "" {
		return e.Uploader
	}
	return e.Channel
}

// ProbeOptions tunes a metadata-only probe.
type ProbeOptions struct {
	// StrictPlaylist keeps a watch URL carrying a list parameter to the
	// single video.
	StrictPlaylist bool
	// ItemLimit bounds playlist enumeration when positive.
	ItemLimit int
}

// DownloadRequest describes one concrete download.
type DownloadRequest struct {
	URL             string
	Directory       string
	TempDir         string
	OutputTemplate  string
	ChapterTemplate string
	Format          string
	Quality         string
	ItemLimit       int
}

// Progress is one status update from a running download. Nil fields are
// absent from the update and leave the job unchanged.
type Progress struct {
	Status             *string  `json:"status,omitempty"`
	TmpFilename        *string  `json:"tmpfilename,omitempty"`
	Filename           *string  `json:"filename,omitempty"`
	Msg                *string  `json:"msg,omitempty"`
	TotalBytes         *float64 `json:"total_bytes,omitempty"`
	TotalBytesEstimate *float64 `json:"total_bytes_estimate,omitempty"`
	DownloadedBytes    *float64 `json:"downloaded_bytes,omitempty"`
	Speed              *float64 `json:"speed,omitempty"`
	ETA                *float64 `json:"eta,omitempty"`
}

// Prober classifies a URL without downloading it.
type Prober interface {
	Probe(ctx context.Context, url string, opts ProbeOptions) (*Entry, error)
}

// Downloader runs a download, reporting progress until it returns.
type Downloader interface {
	Download(ctx context.Context, req DownloadRequest, onProgress func(Progress)) error
}

// Searcher queries the open video index.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Entry, error)
}

// Engine bundles every capability the queue needs from yt-dlp.
type Engine interface {
	Prober
	Downloader
	Searcher
}

// Ptr returns a pointer to v; handy for building Progress values.
func Ptr[T any](v T) *T {
	return &v
}
