package recorder

import (
	"time"

	"recagent/internal/capture"
)

// State is the supervisor's position in the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Snapshot is a read-only view of the supervisor.
type Snapshot struct {
	State      State
	SessionID  string
	Mode       capture.Mode
	OutputPath string
	StartedAt  time.Time
}

type session struct {
	id        string
	req       capture.Request
	proc      Process
	output    string
	startedAt time.Time

	// done is closed by the watcher once the process has exited. exitErr
	// and stopRequested are written under Supervisor.mu before that.
	done          chan struct{}
	exitErr       error
	stopRequested bool
}
