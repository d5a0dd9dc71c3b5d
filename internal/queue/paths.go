package queue

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tubeferry/internal/engine"
	"tubeferry/internal/services"
)

// downloadDir applies the output path policy. Audio requests land under the
// audio root. A folder must resolve inside its root; when mkdir is set a
// missing folder is created if policy allows, otherwise rejected.
func (q *Queue) downloadDir(quality, format, folder string, mkdir bool) (string, error) {
	base := q.cfg.Paths.DownloadDir
	if engine.IsAudioRequest(quality, format) {
		base = q.cfg.Paths.AudioDownloadDir
	}
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return base, nil
	}
	if !q.cfg.Downloads.CustomDirs {
		return "", services.Reason(services.ErrAdmission,
			"A folder for the download was specified but custom_dirs is not true in the configuration.", nil)
	}

	realBase, err := realPath(base)
	if err != nil {
		return "", services.Wrap(services.ErrAdmission, "queue", "resolve path", base, err)
	}
	dir, err := realPath(filepath.Join(base, folder))
	if err != nil {
		return "", services.Wrap(services.ErrAdmission, "queue", "resolve path", folder, err)
	}
	if !within(realBase, dir) {
		return "", services.Reason(services.ErrAdmission,
			fmt.Sprintf("Folder %q must resolve inside the base download directory %q", folder, realBase), nil)
	}
	if !mkdir {
		return dir, nil
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return dir, nil
	case err == nil:
		return "", services.Reason(services.ErrAdmission, fmt.Sprintf("Folder %q is not a directory", folder), nil)
	case !errors.Is(err, fs.ErrNotExist):
		return "", services.Wrap(services.ErrAdmission, "queue", "stat folder", folder, err)
	}
	if !q.cfg.Downloads.CreateCustomDirs {
		return "", services.Reason(services.ErrAdmission, fmt.Sprintf(
			"Folder %q for download does not exist inside base directory %q, and create_custom_dirs is not true in the configuration.",
			folder, realBase), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrAdmission, "queue", "create folder", folder, err)
	}
	return dir, nil
}

// realPath resolves symlinks in the longest existing prefix of path and
// re-attaches the remainder, so paths that do not exist yet still resolve.
func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	existing := abs
	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
