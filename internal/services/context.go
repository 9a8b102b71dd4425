package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	commandIDKey contextKey = "command_id"
	actionKey    contextKey = "action"
)

// WithSessionID annotates context with the recording session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the recording session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCommandID annotates context with a correlation identifier for one
// dispatched remote command.
func WithCommandID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, commandIDKey, id)
}

// CommandIDFromContext extracts the command correlation identifier if present.
func CommandIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(commandIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithAction annotates context with the command action being dispatched.
func WithAction(ctx context.Context, action string) context.Context {
	if action == "" {
		return ctx
	}
	return context.WithValue(ctx, actionKey, action)
}

// ActionFromContext returns the action name if present.
func ActionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(actionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// NewID returns a fresh random identifier for sessions and commands.
func NewID() string {
	return uuid.NewString()
}
