package domain

import (
	"fmt"
	"time"
)

// TransitionError reports an attempt to move a state machine along an
// edge it does not have.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Entity, e.From, e.To)
}

func illegalSeat(from, to SeatStatus) error {
	return &TransitionError{Entity: "seat", From: string(from), To: string(to)}
}

func illegalReservation(from, to ReservationStatus) error {
	return &TransitionError{Entity: "reservation", From: string(from), To: string(to)}
}

func illegalPayment(from, to PaymentStatus) error {
	return &TransitionError{Entity: "payment", From: string(from), To: string(to)}
}

// Reserve flips an available seat to reserved.
func (s Seat) Reserve() (Seat, error) {
	if s.Status != SeatAvailable {
		return s, illegalSeat(s.Status, SeatReserved)
	}
	s.Status = SeatReserved
	return s, nil
}

// Assign flips a reserved seat to assigned on payment success.
func (s Seat) Assign() (Seat, error) {
	if s.Status != SeatReserved {
		return s, illegalSeat(s.Status, SeatAssigned)
	}
	s.Status = SeatAssigned
	return s, nil
}

// Release returns a reserved seat to the pool on expiry, cancellation or
// payment failure.
func (s Seat) Release() (Seat, error) {
	if s.Status != SeatReserved {
		return s, illegalSeat(s.Status, SeatAvailable)
	}
	s.Status = SeatAvailable
	return s, nil
}

// Succeed marks a pending reservation paid. Terminal.
func (r Reservation) Succeed(now time.Time) (Reservation, error) {
	if r.Status != ReservationPending {
		return r, illegalReservation(r.Status, ReservationSuccess)
	}
	r.Status = ReservationSuccess
	r.UpdatedAt = now
	return r, nil
}

// Fail marks a pending reservation failed after an unsuccessful
// settlement. Terminal.
func (r Reservation) Fail(now time.Time) (Reservation, error) {
	if r.Status != ReservationPending {
		return r, illegalReservation(r.Status, ReservationFailed)
	}
	r.Status = ReservationFailed
	r.UpdatedAt = now
	return r, nil
}

// Expire marks an overdue pending reservation expired. Terminal.
func (r Reservation) Expire(now time.Time) (Reservation, error) {
	if r.Status != ReservationPending {
		return r, illegalReservation(r.Status, ReservationExpired)
	}
	r.Status = ReservationExpired
	r.UpdatedAt = now
	r.ExpiresAt = now
	return r, nil
}

// Cancel marks a pending reservation cancelled by its owner. Terminal.
func (r Reservation) Cancel(now time.Time) (Reservation, error) {
	if r.Status != ReservationPending {
		return r, illegalReservation(r.Status, ReservationCancelled)
	}
	r.Status = ReservationCancelled
	r.UpdatedAt = now
	return r, nil
}

// Process claims a pending payment for settlement.
func (p Payment) Process(now time.Time) (Payment, error) {
	if p.Status != PaymentPending {
		return p, illegalPayment(p.Status, PaymentProcessing)
	}
	p.Status = PaymentProcessing
	p.UpdatedAt = now
	return p, nil
}

// Succeed completes a processing payment. Terminal.
func (p Payment) Succeed(now time.Time) (Payment, error) {
	if p.Status != PaymentProcessing {
		return p, illegalPayment(p.Status, PaymentSuccess)
	}
	p.Status = PaymentSuccess
	p.UpdatedAt = now
	return p, nil
}

// Fail settles a processing payment as failed with a reason. Terminal.
func (p Payment) Fail(now time.Time, reason string) (Payment, error) {
	if p.Status != PaymentProcessing && p.Status != PaymentPending {
		return p, illegalPayment(p.Status, PaymentFailed)
	}
	p.Status = PaymentFailed
	p.FailureReason = reason
	p.UpdatedAt = now
	return p, nil
}
