package logging

import (
	"context"
	"log/slog"

	"recagent/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies one recording session.
	FieldSessionID = "session_id"
	// FieldCommandID correlates the log lines of one dispatched remote command.
	FieldCommandID = "command_id"
	// FieldAction is the remote command action being handled.
	FieldAction = "action"
	// FieldEventType is a stable machine-readable name for the logged event.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if id, ok := services.CommandIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCommandID, id))
	}
	if action, ok := services.ActionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAction, action))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
