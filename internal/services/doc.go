// Package services defines shared utilities consumed by the recorder, the
// dispatch loop, and the remote client.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, command correlation IDs, and
//     action names for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is.
package services
