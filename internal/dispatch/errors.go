package dispatch

import (
	"fmt"

	"recagent/internal/services"
)

// UnknownCommandError ends the loop when the feed sends an action it does not understand.
type UnknownCommandError struct {
	Action string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("Unknown command '%s'", e.Action)
}

func (e *UnknownCommandError) Unwrap() error { return services.ErrValidation }

// UnknownTypeError ends the loop when a start command names an unknown recording type.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("Unknown recording type '%s'", e.Type)
}

func (e *UnknownTypeError) Unwrap() error { return services.ErrValidation }
