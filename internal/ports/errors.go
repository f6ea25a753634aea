package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Settlement Authority Errors
	ErrAuthorityUnavailable = errors.New("settlement authority is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the settlement authority")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("settlement authority authentication failed")
	ErrTradeNotFound        = errors.New("trade not found at the settlement authority")
	ErrPlacementFailed      = errors.New("failed to place trade")
	ErrSubmissionFailed     = errors.New("failed to submit trade completion")

	// Signal Errors (settlement reconciliation)
	ErrMalformedSignal = errors.New("settlement signal payload is malformed")
	ErrStaleSignal     = errors.New("settlement signal refers to an expired trade window")
	ErrDuplicateSignal = errors.New("settlement signal was already processed")

	// Price Feed Errors
	ErrNoLivePrice = errors.New("no live price available for symbol")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
)
