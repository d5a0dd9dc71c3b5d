package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tubeferry/internal/config"
	"tubeferry/internal/ipc"
	"tubeferry/internal/preflight"
	"tubeferry/internal/queue"
	"tubeferry/internal/store"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// DaemonBinary locates tubeferryd next to the running executable, falling
// back to PATH.
func DaemonBinary() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "tubeferryd")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("tubeferryd")
	if err != nil {
		return "", fmt.Errorf("locate tubeferryd: %w", err)
	}
	return path, nil
}

// Launch starts a detached tubeferryd process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	var args []string
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless it already answers on the
// socket. It reports whether a new process was launched.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (bool, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		_ = client.Close()
		return false, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return false, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return true, err
	}
	_ = client.Close()
	return true, nil
}

// WaitForShutdown waits for daemon IPC to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
		} else {
			_ = client.Close()
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// Stop asks the daemon to exit and waits for its socket to go away.
func Stop(socketPath string, timeout time.Duration) error {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return ErrDaemonNotRunning
		}
		return err
	}
	_, err = client.Shutdown()
	_ = client.Close()
	if err != nil {
		return err
	}
	return WaitForShutdown(socketPath, timeout)
}

// BuildStatusSnapshot asks the daemon for its status. When the daemon is
// not running, queue counts are read from the stores directly.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			return resp, nil
		}
	}

	resp := &ipc.StatusResponse{
		Mode:          cfg.Downloads.Mode,
		MaxConcurrent: cfg.Downloads.MaxConcurrent,
		StateDir:      cfg.Paths.StateDir,
		LockPath:      cfg.LockPath(),
		SocketPath:    socketPath,
		Spotify:       cfg.HasSpotifyCredentials(),
		Dependencies:  preflight.CheckSystemDeps(cfg),
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	stores, openErr := queue.OpenStores(queryCtx, cfg)
	if openErr != nil {
		return resp, nil
	}
	defer stores.Close()
	for _, target := range []struct {
		st    *store.Store
		count *int
	}{
		{stores.Active, &resp.Active},
		{stores.Pending, &resp.Pending},
		{stores.Done, &resp.Done},
	} {
		entries, loadErr := target.st.LoadAll(queryCtx)
		if loadErr != nil {
			return resp, nil
		}
		*target.count = len(entries)
	}
	return resp, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
