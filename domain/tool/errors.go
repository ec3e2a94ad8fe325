package tool

import "errors"

// Domain errors for the tool system.
var (
	// ErrEmptyName indicates a tool was created with an empty name.
	ErrEmptyName = errors.New("tool name cannot be empty")

	// ErrNoHandler indicates a tool was created without a handler.
	ErrNoHandler = errors.New("tool has no handler")

	// ErrUnknownTool indicates the requested tool is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolExists indicates a tool with the same name already exists.
	ErrToolExists = errors.New("tool already exists")

	// ErrInvalidInput indicates the arguments could not be decoded.
	ErrInvalidInput = errors.New("invalid tool input")
)
