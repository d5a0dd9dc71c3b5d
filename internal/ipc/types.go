package ipc

import (
	"time"

	"tubeferry/internal/catalog"
	"tubeferry/internal/deps"
	"tubeferry/internal/queue"
	"tubeferry/internal/store"
)

// ServiceName is the RPC receiver name registered by the server.
const ServiceName = "Tubeferry"

// Outcome mirrors queue.Result on the wire.
type Outcome struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Failed reports whether the daemon rejected the operation.
func (o Outcome) Failed() bool {
	return o.Status == queue.StatusError
}

// AddRequest admits one or more URLs with shared options.
type AddRequest struct {
	Requests []queue.Request `json:"requests"`
}

// AddResult is the outcome for a single URL.
type AddResult struct {
	URL string `json:"url"`
	Outcome
}

// AddResponse lists per-URL outcomes in request order.
type AddResponse struct {
	Results []AddResult `json:"results"`
}

// Item is one queue entry.
type Item struct {
	Key string `json:"key"`
	store.Descriptor
}

// ListRequest fetches the queues.
type ListRequest struct{}

// ListResponse contains every queue in order.
type ListResponse struct {
	Active  []Item `json:"active"`
	Pending []Item `json:"pending"`
	Done    []Item `json:"done"`
}

// KeysRequest targets jobs by key.
type KeysRequest struct {
	Keys []string `json:"keys"`
}

// ClearRequest removes done records. AllDone clears every done record.
type ClearRequest struct {
	Keys    []string `json:"keys"`
	AllDone bool     `json:"all_done"`
}

// OutcomeResponse carries the result of a queue mutation.
type OutcomeResponse struct {
	Outcome
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon and queue status information.
type StatusResponse struct {
	Running       bool          `json:"running"`
	Restoring     bool          `json:"restoring"`
	PID           int           `json:"pid"`
	StartedAt     time.Time     `json:"started_at"`
	Mode          string        `json:"mode"`
	MaxConcurrent int           `json:"max_concurrent"`
	Active        int           `json:"active"`
	Pending       int           `json:"pending"`
	Done          int           `json:"done"`
	StateDir      string        `json:"state_dir"`
	LockPath      string        `json:"lock_path"`
	SocketPath    string        `json:"socket_path"`
	Spotify       bool          `json:"spotify_credentials"`
	Dependencies  []deps.Status `json:"dependencies"`
}

// ResolveRequest asks for a dry-run Spotify resolution.
type ResolveRequest struct {
	URL   string `json:"url"`
	Limit int    `json:"limit"`
}

// ResolveResponse contains the resolution plan.
type ResolveResponse struct {
	Plan catalog.Plan `json:"plan"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
