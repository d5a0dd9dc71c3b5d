// Package deps reports whether the external binaries tubeferry drives are
// installed: yt-dlp is required, ffmpeg is optional but needed for merged
// video formats and audio extraction.
package deps
