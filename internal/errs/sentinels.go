// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/backend/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser indicates sign-up with an email that is already registered.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials indicates that no account matches the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput indicates a malformed request (e.g. empty email or password).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoSession indicates an operation that needs a signed-in user was called without one.
	ErrNoSession = errors.New("no active session")

	// ErrUnauthorized indicates a missing, malformed or expired access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller touching another user's data.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnknownTable indicates a table name missing from the schema registry.
	ErrUnknownTable = errors.New("unknown table")

	// ErrInvalidRecord indicates a row that does not match its table schema.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrStorage wraps failures of the underlying key-value store.
	// It is logged and degraded to "absent", never surfaced to the UI layer.
	ErrStorage = errors.New("storage failure")
)
