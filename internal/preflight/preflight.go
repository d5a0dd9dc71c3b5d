package preflight

import (
	"tubeferry/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir),
	}
	if cfg.Paths.AudioDownloadDir != cfg.Paths.DownloadDir {
		results = append(results, CheckDirectoryAccess("Audio download directory", cfg.Paths.AudioDownloadDir))
	}
	results = append(results,
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Free space", cfg.Paths.DownloadDir, cfg.Downloads.MinFreeSpace),
	)
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
