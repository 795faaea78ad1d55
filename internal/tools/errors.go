package tools

import "errors"

// Tool registry errors.
var (
	// ErrToolNotFound is returned when a tool is not registered.
	ErrToolNotFound = errors.New("tool not found")

	ErrToolNameEmpty  = errors.New("tool name cannot be empty")
	ErrToolExecuteNil = errors.New("tool execute function cannot be nil")

	// ErrToolAlreadyRegistered is returned by Register for a duplicate name.
	// Use Replace to swap a tool in place.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	ErrMissingRequiredArg = errors.New("missing required argument")
)
