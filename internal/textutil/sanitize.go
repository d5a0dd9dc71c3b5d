package textutil

import (
	"fmt"
	"strconv"
	"strings"
)

// fileNameReplacer maps characters that are unsafe in file names to underscores.
var fileNameReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"\"", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeFileName replaces filesystem-unsafe characters with underscores.
func SanitizeFileName(name string) string {
	return fileNameReplacer.Replace(strings.TrimSpace(name))
}

// PadIndex formats a 1-based position zero-padded to the width of total, so
// item 7 of 120 becomes "007".
func PadIndex(index, total int) string {
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("%0*d", width, index)
}

// JoinPrefix joins name prefixes with ".", skipping empty parts.
func JoinPrefix(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
