// Package logging assembles structured slog loggers and formatting helpers used
// across recagent.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so recorder and dispatch code can
// tag log lines with session IDs, command IDs, and actions. The package also
// provides a no-op logger for tests and per-run log file retention.
package logging
