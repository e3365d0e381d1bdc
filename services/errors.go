package services

import "errors"

// Failure taxonomy surfaced to the HTTP layer. Cross-team access is
// reported as ErrNotFound on purpose, so a caller can never probe whether
// an id exists under another tenant.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)
