package tracking

import "errors"

// Sentinel errors for the ingestion core. None of these ever reach an HTTP
// response body: tracking endpoints answer identically whether a hit was
// genuine, automated, or broken.
var (
	// ErrNotFound: the token doesn't resolve. Callers serve the benign
	// response (pixel / fallback redirect) and move on.
	ErrNotFound = errors.New("tracking token not found")

	// ErrAlreadyProcessed: idempotent no-op, not a failure.
	ErrAlreadyProcessed = errors.New("event already processed")

	// ErrTransactionFailure: the atomic counter update rolled back. The hit
	// is dropped; a missed count is acceptable, a duplicate is not.
	ErrTransactionFailure = errors.New("tracking transaction failed")
)
