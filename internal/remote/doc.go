// Package remote talks to the control service that issues recording commands.
//
// The Client fetches the pending command, posts best-effort status reports,
// and uploads finished recordings. Failures are reported as *TransportError
// (network or non-2xx) or *DecodeError (malformed command payload) so the
// dispatch loop can treat them differently.
package remote
