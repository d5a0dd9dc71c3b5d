package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDownloads(); err != nil {
		return err
	}
	c.normalizeSpotify()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AudioDownloadDir) == "" {
		c.Paths.AudioDownloadDir = c.Paths.DownloadDir
	}
	if c.Paths.AudioDownloadDir, err = expandPath(c.Paths.AudioDownloadDir); err != nil {
		return fmt.Errorf("paths.audio_download_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(strings.TrimSpace(c.Paths.TempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownloads() error {
	d := &c.Downloads
	d.Mode = strings.ToLower(strings.TrimSpace(d.Mode))
	if d.Mode == "" {
		d.Mode = defaultMode
	}
	d.DefaultQuality = strings.ToLower(strings.TrimSpace(d.DefaultQuality))
	if d.DefaultQuality == "" {
		d.DefaultQuality = defaultQuality
	}
	d.DefaultFormat = strings.ToLower(strings.TrimSpace(d.DefaultFormat))
	if d.DefaultFormat == "" {
		d.DefaultFormat = defaultFormat
	}
	if strings.TrimSpace(d.OutputTemplate) == "" {
		d.OutputTemplate = defaultOutputTemplate
	}
	if strings.TrimSpace(d.OutputTemplateChapter) == "" {
		d.OutputTemplateChapter = defaultOutputTemplateChapter
	}
	d.YtdlpBinary = strings.TrimSpace(d.YtdlpBinary)
	if d.YtdlpBinary == "" {
		d.YtdlpBinary = defaultYtdlpBinary
	}
	if d.SocketTimeout <= 0 {
		d.SocketTimeout = defaultSocketTimeout
	}
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = defaultProbeTimeout
	}
	args, err := shlex.Split(d.ExtraArgs)
	if err != nil {
		return fmt.Errorf("downloads.extra_args: %w", err)
	}
	d.extraArgs = args
	return nil
}

func (c *Config) normalizeSpotify() {
	s := &c.Spotify
	s.ClientID = strings.TrimSpace(s.ClientID)
	if s.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok {
			s.ClientID = strings.TrimSpace(value)
		}
	}
	s.ClientSecret = strings.TrimSpace(s.ClientSecret)
	if s.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
			s.ClientSecret = strings.TrimSpace(value)
		}
	}
	s.APIBaseURL = strings.TrimRight(strings.TrimSpace(s.APIBaseURL), "/")
	if s.APIBaseURL == "" {
		s.APIBaseURL = defaultSpotifyAPIBaseURL
	}
	if strings.TrimSpace(s.TokenURL) == "" {
		s.TokenURL = defaultSpotifyTokenURL
	}
	if strings.TrimSpace(s.OEmbedURL) == "" {
		s.OEmbedURL = defaultSpotifyOEmbedURL
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = defaultSpotifyRequestTimeout
	}
	if s.MaxSearchAttempts <= 0 {
		s.MaxSearchAttempts = defaultMaxSearchAttempts
	}
	if s.SearchResults <= 0 {
		s.SearchResults = defaultSearchResults
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("TUBEFERRY_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
