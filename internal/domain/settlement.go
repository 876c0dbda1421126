package domain

import "errors"

// Settlement precondition failures. Each maps to a distinct client-facing
// error kind at the transport layer.
var (
	ErrAlreadyProcessed      = errors.New("payment already processed")
	ErrInvalidAmount         = errors.New("declared amount does not match seat price")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrReservationNotPending = errors.New("reservation is not pending")
	ErrSeatNotReserved       = errors.New("seat is not reserved")
	ErrConcertMismatch       = errors.New("concert does not match admission token")
)

// ValidateAdmissionScope checks that the concert an admission token was
// validated for is the concert the seat's date belongs to. The waiting
// room gates per concert, so a token admitted to one concert must not
// authorize reservations or settlements on another.
func ValidateAdmissionScope(d ConcertDate, concertID int64) error {
	if d.ConcertID != concertID {
		return ErrConcertMismatch
	}
	return nil
}

// ValidateSettlement checks every precondition of a payment settlement
// against a consistent snapshot read inside the settlement transaction.
// It is pure: callers apply the transitions only when it returns nil.
func ValidateSettlement(
	p Payment,
	r Reservation,
	s Seat,
	balanceCents int64,
	declaredCents int64,
) error {
	if p.Status != PaymentProcessing {
		return ErrAlreadyProcessed
	}
	if r.Status != ReservationPending {
		return ErrReservationNotPending
	}
	if s.Status != SeatReserved {
		return ErrSeatNotReserved
	}
	if declaredCents != s.PriceCents || p.AmountCents != s.PriceCents {
		return ErrInvalidAmount
	}
	if balanceCents < p.AmountCents {
		return ErrInsufficientBalance
	}
	return nil
}
