// Package preflight reports whether the host is ready to record.
//
// The check command prints every result. The run command calls RunAll before
// entering the dispatch loop and logs failures as warnings; it still starts so
// the control service receives error statuses instead of silence.
package preflight
