package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates that construction arguments were rejected
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates a JSON schema type with no native mapping
	ErrUnsupportedType = errors.New("unsupported schema type")

	// ErrMaxTurns indicates the agent loop hit its turn limit without a final answer
	ErrMaxTurns = errors.New("max turns exceeded")

	// ErrClientClosed is returned when a remote tool client has been closed
	ErrClientClosed = errors.New("client closed")
)
