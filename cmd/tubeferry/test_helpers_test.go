package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tubeferry/internal/catalog"
	"tubeferry/internal/config"
	"tubeferry/internal/daemon"
	"tubeferry/internal/engine"
	"tubeferry/internal/ipc"
	"tubeferry/internal/logging"
	"tubeferry/internal/queue"
	"tubeferry/internal/testsupport"
)

type staticMetadata []catalog.Track

func (m staticMetadata) Tracks(context.Context, catalog.Ref) ([]catalog.Track, error) {
	return m, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	engine     *testsupport.FakeEngine
	queue      *queue.Queue
	socketPath string
	configPath string
}

// setupCLITestEnv runs an in-process daemon behind a real IPC socket so
// commands exercise the same path as against tubeferryd.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	clearSpotifyEnv(t)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	eng := testsupport.NewFakeEngine()
	eng.AddVideo("https://youtu.be/a", "a", "Alpha")
	eng.AddVideo("https://youtu.be/b", "b", "Beta")
	eng.SetSearch("Queen - Bohemian Rhapsody", []engine.Entry{{Title: "Queen - Bohemian Rhapsody (Official Video)", URL: "https://youtu.be/q"}})

	logger := logging.NewNop()
	q, err := queue.New(cfg, testsupport.MustOpenStores(t, cfg), eng)
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	planner := catalog.NewResolver(cfg.Spotify, staticMetadata{{Name: "Bohemian Rhapsody", Artists: []string{"Queen"}}}, eng, logger)
	d, err := daemon.New(cfg, q, planner, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() { d.Stop(context.Background()) })

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger, cancel)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	return &cliTestEnv{
		cfg:        cfg,
		engine:     eng,
		queue:      q,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
	}
}

func clearSpotifyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
download_dir = %q
audio_download_dir = %q
temp_dir = %q
state_dir = %q
log_dir = %q

[downloads]
mode = %q
max_concurrent = %d
min_free_space = "0B"
`, cfg.Paths.DownloadDir, cfg.Paths.AudioDownloadDir, cfg.Paths.TempDir, cfg.Paths.StateDir, cfg.Paths.LogDir,
		cfg.Downloads.Mode, cfg.Downloads.MaxConcurrent)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	full := make([]string, 0, len(args)+4)
	if socket != "" {
		full = append(full, "--socket", socket)
	}
	if configPath != "" {
		full = append(full, "--config", configPath)
	}
	full = append(full, args...)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
