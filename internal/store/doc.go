// Package store persists queue stages (pending, active, done) as ordered
// key/descriptor maps.
//
// Each stage is an independent SQLite database opened with WAL journaling
// and a busy timeout. Writes hit SQLite before the in-memory mirror; reads
// never touch the database after Load. Reloads order entries by their
// creation timestamp so a restarted daemon sees the same sequence.
package store
