package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary tubeferry relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// DefaultYtdlpCommand is used when downloads.ytdlp_binary is unset.
const DefaultYtdlpCommand = "yt-dlp"

// Requirements lists the binaries tubeferry checks, resolving yt-dlp from
// the configured command. FFmpeg is resolved separately because yt-dlp
// prefers a copy sitting next to its own executable.
func Requirements(ytdlpCommand string) []Requirement {
	cmd := strings.TrimSpace(ytdlpCommand)
	if cmd == "" {
		cmd = DefaultYtdlpCommand
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cmd,
			Description: "Required for metadata probes, searches and downloads",
		},
	}
}

// Check evaluates every tubeferry dependency for the given yt-dlp command.
func Check(ytdlpCommand string) []Status {
	reqs := Requirements(ytdlpCommand)
	results := CheckBinaries(reqs)
	return append(results, CheckFFmpegForYtdlp(reqs[0].Command))
}

// MissingRequired returns the non-optional dependencies that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
