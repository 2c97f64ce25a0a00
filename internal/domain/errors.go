package domain

import "errors"

// Errors surfaced by the application layer. Handlers map them to HTTP status codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrInvalidSession     = errors.New("invalid session")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrSlugLocked         = errors.New("slug is locked once published")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateSlug      = errors.New("slug already in use")
	ErrValidation         = errors.New("validation error")
)
