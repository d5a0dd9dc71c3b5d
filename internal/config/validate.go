package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownloads(); err != nil {
		return err
	}
	if err := c.validateSpotify(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateDownloads() error {
	switch c.Downloads.Mode {
	case ModeSequential, ModeUnlimited:
	case ModeLimited:
		if c.Downloads.MaxConcurrent < 1 {
			return errors.New("downloads.max_concurrent must be at least 1 in limited mode")
		}
	default:
		return fmt.Errorf("downloads.mode: unsupported value %q (expected sequential, limited, or unlimited)", c.Downloads.Mode)
	}
	if !c.Downloads.CustomDirs && c.Downloads.CreateCustomDirs {
		return errors.New("downloads.create_custom_dirs requires downloads.custom_dirs")
	}
	return nil
}

func (c *Config) validateSpotify() error {
	if (c.Spotify.ClientID == "") != (c.Spotify.ClientSecret == "") {
		return errors.New("spotify.client_id and spotify.client_secret must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
