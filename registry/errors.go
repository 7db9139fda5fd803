package registry

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the issuer (issuance)
	// or not the current owner (transfer).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for identifiers with no issued badge.
	ErrNotFound = errors.New("badge not found")
	// ErrInvalidArgument is returned for empty or oversized inputs.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotInitialized is returned when the registry has not been created yet.
	ErrNotInitialized = errors.New("registry not initialized")
	// ErrAlreadyInitialized is returned by a second Create.
	ErrAlreadyInitialized = errors.New("registry already initialized")
)
