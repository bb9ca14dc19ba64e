package models

import "errors"

// Sentinel errors returned by the engine and its collaborators. Callers use
// errors.Is to classify failures; HTTP handlers map these to status codes.
var (
	// ErrNotFound indicates the target entity is missing on a read path.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed request; no state was changed.
	ErrValidation = errors.New("validation failed")

	// ErrTransient indicates a lock could not be acquired; callers may retry.
	ErrTransient = errors.New("transient failure")

	// ErrInternal indicates an invariant violation detected at runtime; the
	// offending update is rejected and state remains consistent.
	ErrInternal = errors.New("internal invariant violation")
)
