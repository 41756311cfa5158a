package common

import "errors"

// Engine error taxonomy. Callers distinguish these with errors.Is; everything
// else wraps one of them or passes through as an infrastructure failure.
var (
	// ErrInsufficientStock is returned when a reserve would overdraw a lot
	// line's available quantity. Recovered locally by reporting a shortfall,
	// never by a partial or negative reservation.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition is returned when a reservation already in a
	// terminal state receives another terminal transition. Treated as an
	// idempotent no-op and reported, not re-applied.
	ErrInvalidTransition = errors.New("invalid reservation transition")

	// ErrInconsistentLedger is returned when a commit or release targets a
	// line whose allocated quantity is below the requested amount. The
	// mutation clamps to zero instead of going negative; the discrepancy
	// indicates a prior bookkeeping bug and is logged loudly.
	ErrInconsistentLedger = errors.New("inconsistent ledger")

	// ErrNotFound is returned when a referenced lot, line, product, or
	// reservation does not exist.
	ErrNotFound = errors.New("not found")
)
