package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DownloadDir      string `toml:"download_dir"`
	AudioDownloadDir string `toml:"audio_download_dir"`
	TempDir          string `toml:"temp_dir"`
	StateDir         string `toml:"state_dir"`
	LogDir           string `toml:"log_dir"`
}

// Downloads contains queue and yt-dlp behaviour.
type Downloads struct {
	// Mode is one of sequential, limited, or unlimited.
	Mode                   string            `toml:"mode"`
	MaxConcurrent          int               `toml:"max_concurrent"`
	CustomDirs             bool              `toml:"custom_dirs"`
	CreateCustomDirs       bool              `toml:"create_custom_dirs"`
	DeleteFileOnClear      bool              `toml:"delete_file_on_clear"`
	DefaultQuality         string            `toml:"default_quality"`
	DefaultFormat          string            `toml:"default_format"`
	OutputTemplate         string            `toml:"output_template"`
	OutputTemplateChapter  string            `toml:"output_template_chapter"`
	OutputTemplatePlaylist string            `toml:"output_template_playlist"`
	YtdlpBinary            string            `toml:"ytdlp_binary"`
	ExtraArgs              string            `toml:"extra_args"`
	SocketTimeout          int               `toml:"socket_timeout"`
	ProbeTimeout           int               `toml:"probe_timeout"`
	MinFreeSpace           datasize.ByteSize `toml:"min_free_space"`

	extraArgs []string
}

// Spotify contains catalog resolver settings.
type Spotify struct {
	ClientID          string `toml:"client_id"`
	ClientSecret      string `toml:"client_secret"`
	APIBaseURL        string `toml:"api_base_url"`
	TokenURL          string `toml:"token_url"`
	OEmbedURL         string `toml:"oembed_url"`
	RequestTimeout    int    `toml:"request_timeout"`
	MaxSearchAttempts int    `toml:"max_search_attempts"`
	SearchResults     int    `toml:"search_results"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tubeferry.
//
// Configuration sections by subsystem:
//   - Paths: download roots, temp files, queue state, logs
//   - Downloads: concurrency mode, folder policy, yt-dlp invocation
//   - Spotify: credentials and matching limits for the catalog resolver
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Downloads     Downloads     `toml:"downloads"`
	Spotify       Spotify       `toml:"spotify"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tubeferry/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Environment files (.env, .env.local in
// the working directory and next to the config file) are read first so their
// values can serve as credential fallbacks.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	loadEnvFiles(filepath.Dir(resolvedPath))

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadEnvFiles(configDir string) {
	candidates := []string{".env", ".env.local"}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		// Existing environment variables win; godotenv.Load never overrides.
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tubeferry.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DownloadDir, c.Paths.AudioDownloadDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Paths.TempDir != "" {
		if err := os.MkdirAll(c.Paths.TempDir, 0o755); err != nil {
			return fmt.Errorf("create temp directory %q: %w", c.Paths.TempDir, err)
		}
	}
	return nil
}

// ExtraArgs returns downloads.extra_args split into shell words.
func (c *Config) ExtraArgs() []string {
	return append([]string(nil), c.Downloads.extraArgs...)
}

// StorePath returns the SQLite file backing the named queue store.
func (c *Config) StorePath(name string) string {
	return filepath.Join(c.Paths.StateDir, name+".db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "tubeferry.sock")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "tubeferryd.lock")
}

// HasSpotifyCredentials reports whether authenticated catalog lookups are possible.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
