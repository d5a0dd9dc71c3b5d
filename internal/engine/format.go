package engine

import (
	"strings"
	"unicode"
)

var audioFormats = map[string]struct{}{
	"mp3":  {},
	"m4a":  {},
	"opus": {},
	"wav":  {},
	"flac": {},
}

// FormatThumbnail downloads only the video thumbnail.
const FormatThumbnail = "thumbnail"

// IsAudioFormat reports whether format names an audio-only container.
func IsAudioFormat(format string) bool {
	_, ok := audioFormats[strings.ToLower(strings.TrimSpace(format))]
	return ok
}

// IsAudioRequest reports whether a request should be routed to the audio root.
func IsAudioRequest(quality, format string) bool {
	return strings.EqualFold(strings.TrimSpace(quality), "audio") || IsAudioFormat(format)
}

// FormatArgs maps the user-facing format and quality onto yt-dlp options.
func FormatArgs(format, quality string) []string {
	format = strings.ToLower(strings.TrimSpace(format))
	quality = strings.ToLower(strings.TrimSpace(quality))

	if format == FormatThumbnail {
		return []string{"--skip-download", "--write-thumbnail", "--convert-thumbnails", "jpg"}
	}

	if IsAudioRequest(quality, format) {
		target := format
		if !IsAudioFormat(target) {
			target = "best"
		}
		args := []string{"-f", "bestaudio/best", "-x", "--audio-format", target}
		if isDigits(quality) {
			args = append(args, "--audio-quality", quality+"K")
		}
		return args
	}

	height := ""
	if isDigits(strings.TrimSuffix(quality, "p")) {
		height = strings.TrimSuffix(quality, "p")
	}

	if format == "mp4" {
		selector := "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b"
		if height != "" {
			selector = "bv*[height<=" + height + "][ext=mp4]+ba[ext=m4a]/b[height<=" + height + "][ext=mp4]/bv*[height<=" + height + "]+ba/b[height<=" + height + "]"
		}
		return []string{"-f", selector, "--merge-output-format", "mp4"}
	}

	selector := "bv*+ba/b"
	if height != "" {
		selector = "bv*[height<=" + height + "]+ba/b[height<=" + height + "]"
	}
	return []string{"-f", selector}
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
