package services

import "errors"

// Failure taxonomy for the analysis pipeline. All three are recoverable by
// the caller; controllers map them to HTTP statuses. Precondition violations
// (carb ratio <= 0, combining zero estimates) are contract bugs and panic
// instead.
var (
	// ErrNonFoodInput means the input was confidently judged unrelated to
	// food. Ambiguous input is never rejected with this.
	ErrNonFoodInput = errors.New("input does not appear to be food")

	// ErrNoMatchFound means database-only mode found no usable candidate.
	// The pipeline never silently falls back to AI in that mode.
	ErrNoMatchFound = errors.New("no food database match found")

	// ErrUpstream means an external capability was unreachable or returned
	// an unparseable payload. The pipeline does not retry internally.
	ErrUpstream = errors.New("upstream service failed")
)
