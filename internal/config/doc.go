// Package config loads, normalizes, and validates tubeferry configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, honours .env files and environment fallbacks
// such as SPOTIFY_CLIENT_ID, and parses byte sizes and shell-quoted yt-dlp
// arguments once so downstream code receives ready-to-use values.
package config
