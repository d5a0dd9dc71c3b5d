// Package job runs a single download.
//
// A Job owns one Worker, the yt-dlp subprocess for that download, and
// relays the worker's status channel into its descriptor. Cancellation is a
// flag observed by the relay plus a kill of the worker's process group.
package job
