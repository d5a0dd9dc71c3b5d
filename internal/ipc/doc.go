// Package ipc exposes the daemon over JSON-RPC on a Unix domain socket.
//
// The server registers a single "Tubeferry" service whose methods forward to
// the daemon's queue operations; the client wraps each call for the CLI.
// Request and response types live in types.go so both sides share them.
package ipc
