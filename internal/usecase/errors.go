package usecase

import "errors"

// Sentinel errors services wrap their failures in. The HTTP layer switches
// on these to pick a response status, so every error a service returns must
// chain back to one of them.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrEditInFlight          = errors.New("another edit is in flight")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrPersistenceFailure    = errors.New("persistence failure")
)
