// Package catalog keeps a SQLite history of capture sessions.
//
// The store implements recorder.Journal so the supervisor can record each
// session as it starts and ends, and backs the history command.
package catalog
