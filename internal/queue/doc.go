// Package queue is the download orchestrator.
//
// Admit expands a URL into jobs: indirect URLs are followed, playlists are
// split into their children, and restricted-catalog references are handed
// to a Resolver that re-submits open-index matches. Each job is written to
// the pending or active store before anything runs. The configured mode then
// decides when a job's worker starts:
//
//   - sequential: one FIFO lane; completion order equals admission order.
//   - limited: a weighted semaphore of downloads.max_concurrent.
//   - unlimited: every job starts at once.
//
// When a worker exits its cleanup moves the job from active to done, or
// drops it with a canceled notification. Removal from the active store
// happens under the queue mutex and is the only completion marker, so each
// job is cleaned up exactly once.
package queue
