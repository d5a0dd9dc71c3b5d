// Package notifications delivers queue lifecycle events.
//
// The queue talks to a single Notifier. The daemon composes a structured log
// notifier with an ntfy push notifier through Multi; pushes are sent only
// for finished or failed downloads and are skipped when no topic is set.
package notifications
