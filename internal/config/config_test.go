package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml/v2"

	"tubeferry/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SPOTIFY_CLIENT_ID", "id-from-env")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret-from-env")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDownloads := filepath.Join(tempHome, "Downloads", "tubeferry")
	if cfg.Paths.DownloadDir != wantDownloads {
		t.Fatalf("unexpected download dir: got %q want %q", cfg.Paths.DownloadDir, wantDownloads)
	}
	if cfg.Paths.AudioDownloadDir != wantDownloads {
		t.Fatalf("expected audio dir to default to download dir, got %q", cfg.Paths.AudioDownloadDir)
	}
	if cfg.Downloads.Mode != config.ModeLimited || cfg.Downloads.MaxConcurrent != 3 {
		t.Fatalf("unexpected concurrency defaults: %s/%d", cfg.Downloads.Mode, cfg.Downloads.MaxConcurrent)
	}
	if !cfg.HasSpotifyCredentials() || cfg.Spotify.ClientID != "id-from-env" {
		t.Fatalf("expected spotify credentials from env, got %+v", cfg.Spotify)
	}
	if cfg.SocketPath() != filepath.Join(tempHome, ".local", "share", "tubeferry", "state", "tubeferry.sock") {
		t.Fatalf("unexpected socket path %q", cfg.SocketPath())
	}
}

func TestLoadParsesDownloadsSection(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
download_dir = "` + filepath.Join(dir, "dl") + `"
state_dir = "` + filepath.Join(dir, "state") + `"

[downloads]
mode = "Sequential"
extra_args = "--cookies '/tmp/my cookies.txt' --limit-rate 2M"
min_free_space = "1GB"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Downloads.Mode != config.ModeSequential {
		t.Fatalf("expected normalized mode, got %q", cfg.Downloads.Mode)
	}
	wantArgs := []string{"--cookies", "/tmp/my cookies.txt", "--limit-rate", "2M"}
	got := cfg.ExtraArgs()
	if strings.Join(got, "|") != strings.Join(wantArgs, "|") {
		t.Fatalf("unexpected extra args %q", got)
	}
	if cfg.Downloads.MinFreeSpace != datasize.GB {
		t.Fatalf("unexpected min free space %v", cfg.Downloads.MinFreeSpace)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown mode", func(c *config.Config) { c.Downloads.Mode = "parallel" }, "downloads.mode"},
		{"limited without slots", func(c *config.Config) { c.Downloads.MaxConcurrent = 0 }, "max_concurrent"},
		{"half credentials", func(c *config.Config) { c.Spotify.ClientID = "id" }, "spotify.client_id"},
		{"create without custom", func(c *config.Config) { c.Downloads.CustomDirs = false }, "create_custom_dirs"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSampleConfigDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	cfg := config.Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not decode: %v", err)
	}
	if cfg.Downloads.OutputTemplatePlaylist == "" {
		t.Fatal("expected playlist template in sample")
	}
}
