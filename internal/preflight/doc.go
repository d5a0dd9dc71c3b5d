// Package preflight provides readiness checks for the filesystem paths and
// external binaries tubeferry depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check.
//     The queue calls FreeBytes before each download to enforce
//     downloads.min_free_space.
//   - The CLI "tubeferry status" and "tubeferry deps" commands display the
//     individual results.
package preflight
