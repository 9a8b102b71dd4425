package recorder

import (
	"context"
	"time"
)

// Session outcome labels recorded in the journal.
const (
	OutcomeRecording = "recording"
	OutcomeCompleted = "completed"
	OutcomeStopped   = "stopped"
	OutcomeFailed    = "failed"
)

// SessionRecord describes a capture at the moment it starts.
type SessionRecord struct {
	ID         string
	Mode       string
	Device     string
	Quality    string
	OutputPath string
	Duration   time.Duration
	StartedAt  time.Time
}

// SessionResult describes how a capture ended.
type SessionResult struct {
	Outcome   string
	FinalPath string
	EndedAt   time.Time
	Forced    bool
	Err       error
}

// Journal persists session history. Failures are logged and never affect the
// recording itself.
type Journal interface {
	Begin(ctx context.Context, rec SessionRecord) error
	Finish(ctx context.Context, id string, result SessionResult) error
}
