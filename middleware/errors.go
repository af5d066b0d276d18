package middleware

import "errors"

var (
	// ErrRateLimitExceeded indicates rate limit has been exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInputRejected indicates input validation failed
	ErrInputRejected = errors.New("input rejected")
)
