package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the failure is worth retrying on the next poll
// cycle. Validation and configuration problems repeat until someone fixes them.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
