// Package daemon coordinates the long-running tubeferry process.
//
// It holds the flock that keeps a single instance per state directory,
// restores the queue stores on start, and exposes the queue operations the
// IPC layer forwards from the CLI. Download orchestration itself lives in
// the queue package; the daemon only owns startup, shutdown and the
// status summary.
package daemon
