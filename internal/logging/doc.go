// Package logging assembles structured slog loggers and formatting helpers
// used across tubeferry.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers that tag log lines with job
// keys, stages, and correlation IDs. A no-op logger is provided for tests.
package logging
