package recorder

import (
	"errors"
	"fmt"
	"strings"

	"recagent/internal/services"
)

// ErrAlreadyRecording is returned by Start while a session is running or stopping.
var ErrAlreadyRecording = fmt.Errorf("%w: a recording session is already active", services.ErrValidation)

// LaunchError reports that the encoder process could not be started.
type LaunchError struct {
	Binary string
	Args   []string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return compact(services.ErrExternalTool, e.Err)
}

// CaptureFailedError reports an encoder invocation that exited unsuccessfully.
// Diagnostic holds the tail of the encoder's stderr.
type CaptureFailedError struct {
	Operation  string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *CaptureFailedError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Operation)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if detail := lastLines(e.Diagnostic, 3); detail != "" {
		msg += ": " + detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CaptureFailedError) Unwrap() []error {
	return compact(services.ErrExternalTool, e.Err)
}

// ExitError carries a non-zero encoder exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func exitCodeOf(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

func compact(errs ...error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append([]string{line}, kept...)
		}
	}
	return strings.Join(kept, " | ")
}
