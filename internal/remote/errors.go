package remote

import (
	"fmt"

	"recagent/internal/services"
)

// TransportError reports an unreachable feed or a non-success response.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrTransient}
	}
	return []error{services.ErrTransient, e.Err}
}

// DecodeError reports a command payload that is not valid JSON for a Command.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode command: %v", e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{services.ErrValidation, e.Err}
}
