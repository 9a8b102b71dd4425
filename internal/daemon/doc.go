// Package daemon owns the lifetime of the recording agent process.
//
// It holds a flock-based lock so only one agent drives the encoder per state
// directory, closes catalog sessions orphaned by a previous crash, runs the
// dispatch loop, and on shutdown stops any active recording so the file is
// finalized before the process exits.
package daemon
