package usecase

import "errors"

// Handlers map these sentinels to HTTP statuses; wrap them with %w.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDependencyUnavailable covers an open circuit or an unreachable
	// score site or calendar host.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
