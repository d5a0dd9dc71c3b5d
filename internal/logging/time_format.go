package logging

import "time"

const consoleTimestampLayout = "2006-01-02 15:04:05"

// formatTimestamp renders ts in local time for console output.
func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(consoleTimestampLayout)
}
