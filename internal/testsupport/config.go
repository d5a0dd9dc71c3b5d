package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tubeferry/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Every directory exists, free-space checks are off and downloads run in
// limited mode unless an option says otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.AudioDownloadDir = filepath.Join(base, "audio")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Downloads.MinFreeSpace = 0
	cfgVal.Spotify.ClientID = ""
	cfgVal.Spotify.ClientSecret = ""
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMode sets the concurrency mode and gate size.
func WithMode(mode string, maxConcurrent int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.Mode = mode
		b.cfg.Downloads.MaxConcurrent = maxConcurrent
	}
}

// WithSpotifyCredentials configures Web API credentials against baseURL.
func WithSpotifyCredentials(apiBaseURL, tokenURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Spotify.ClientID = "test-client"
		b.cfg.Spotify.ClientSecret = "test-secret"
		b.cfg.Spotify.APIBaseURL = apiBaseURL
		b.cfg.Spotify.TokenURL = tokenURL
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, yt-dlp and ffmpeg are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
