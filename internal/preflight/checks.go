package preflight

import (
	"fmt"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"tubeferry/internal/config"
	"tubeferry/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// FreeBytes returns the space available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage for %s: %w", path, err)
	}
	return usage.Free, nil
}

// CheckFreeSpace verifies that path has at least minimum bytes free. A zero
// minimum always passes.
func CheckFreeSpace(name, path string, minimum datasize.ByteSize) Result {
	if minimum == 0 {
		return Result{Name: name, Passed: true, Detail: "no minimum configured"}
	}
	free, err := FreeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return freeSpaceResult(name, path, free, minimum)
}

func freeSpaceResult(name, path string, free uint64, minimum datasize.ByteSize) Result {
	have := datasize.ByteSize(free).HumanReadable()
	if free < minimum.Bytes() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s free, need %s)", path, have, minimum.HumanReadable())}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, have)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the daemon and the CLI deps command use this so the requirements
// list lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return deps.Check("")
	}
	return deps.Check(cfg.Downloads.YtdlpBinary)
}

// CheckSpotifyFromConfig reports which Spotify metadata path is active.
func CheckSpotifyFromConfig(cfg *config.Config) Result {
	const name = "Spotify"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if cfg.HasSpotifyCredentials() {
		return Result{Name: name, Passed: true, Detail: "Web API credentials configured"}
	}
	return Result{Name: name, Passed: true, Detail: "oEmbed fallback (tracks only; albums and playlists need credentials)"}
}

// CheckNotificationsFromConfig reports whether ntfy pushes are enabled.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Notifications.NtfyTopic}
}
