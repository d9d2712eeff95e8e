package model

import "errors"

// Error taxonomy surfaced to the transport layer. Not-found and
// backend-unavailable are distinct categories: an empty result set is never
// reported as a connectivity failure, and vice versa.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrAccessDenied       = errors.New("access denied")
	ErrBackendUnavailable = errors.New("backend unavailable")
)
