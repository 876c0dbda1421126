package reservation

import "errors"

var (
	ErrSeatUnavailable = errors.New("seat is not available")
	// ErrLockContended means another buyer holds the seat lock right
	// now. The seat may still free up, so it is distinct from
	// ErrSeatUnavailable.
	ErrLockContended       = errors.New("seat lock is contended")
	ErrSaleClosed          = errors.New("reservation period is over")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrSeatNotFound        = errors.New("seat not found")
	ErrAlreadyFinalized    = errors.New("reservation is no longer pending")
	ErrConcertDateNotFound = errors.New("concert date not found")
	// ErrRequestInFlight means another request with the same
	// idempotency key has not finished yet.
	ErrRequestInFlight = errors.New("idempotency key in progress")
)
