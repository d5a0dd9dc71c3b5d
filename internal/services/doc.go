// Package services defines shared utilities consumed by the queue, the
// extraction engine client, and the catalog resolver.
//
// Key responsibilities:
//   - Context helpers that stamp job keys, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap and Reason helpers. Wrap builds
//     staged internal errors; Reason builds user-facing errors whose text is
//     shown verbatim while errors.Is still classifies them.
package services
