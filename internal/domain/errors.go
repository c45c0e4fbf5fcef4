package domain

import "errors"

// Sentinel errors shared across repositories, services and handlers.
// Callers match them with errors.Is; repositories wrap them with context.
var (
	// ErrTenantNotFound is returned when no tenant owns the requested
	// identifier or phone number.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidConfig is returned when a call configuration is missing a
	// required field after defaults have been applied.
	ErrInvalidConfig = errors.New("invalid call configuration")

	// ErrPersistence marks storage-layer failures. The webhook path treats
	// these as non-fatal and still answers the caller.
	ErrPersistence = errors.New("persistence failure")
)
