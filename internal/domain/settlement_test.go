package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSettlement(t *testing.T) {
	const price = int64(120_00)

	base := func() (Payment, Reservation, Seat) {
		return Payment{Status: PaymentProcessing, AmountCents: price},
			Reservation{Status: ReservationPending},
			Seat{Status: SeatReserved, PriceCents: price}
	}

	t.Run("all preconditions met", func(t *testing.T) {
		p, r, s := base()
		assert.NoError(t, ValidateSettlement(p, r, s, price, price))
	})

	t.Run("payment not claimed", func(t *testing.T) {
		p, r, s := base()
		p.Status = PaymentPending
		assert.ErrorIs(t, ValidateSettlement(p, r, s, price, price), ErrAlreadyProcessed)
	})

	t.Run("payment already settled", func(t *testing.T) {
		p, r, s := base()
		p.Status = PaymentSuccess
		assert.ErrorIs(t, ValidateSettlement(p, r, s, price, price), ErrAlreadyProcessed)
	})

	t.Run("reservation expired underneath", func(t *testing.T) {
		p, r, s := base()
		r.Status = ReservationExpired
		assert.ErrorIs(t, ValidateSettlement(p, r, s, price, price), ErrReservationNotPending)
	})

	t.Run("seat went back on sale", func(t *testing.T) {
		p, r, s := base()
		s.Status = SeatAvailable
		assert.ErrorIs(t, ValidateSettlement(p, r, s, price, price), ErrSeatNotReserved)
	})

	t.Run("declared amount mismatch", func(t *testing.T) {
		p, r, s := base()
		assert.ErrorIs(t, ValidateSettlement(p, r, s, price, price-1), ErrInvalidAmount)
	})

	t.Run("payment amount drifted from seat price", func(t *testing.T) {
		p, r, s := base()
		p.AmountCents = price + 1
		assert.ErrorIs(t, ValidateSettlement(p, r, s, price, price), ErrInvalidAmount)
	})

	t.Run("balance too low", func(t *testing.T) {
		p, r, s := base()
		assert.ErrorIs(t, ValidateSettlement(p, r, s, price-1, price), ErrInsufficientBalance)
	})

	t.Run("exact balance passes", func(t *testing.T) {
		p, r, s := base()
		assert.NoError(t, ValidateSettlement(p, r, s, price, price))
	})
}

func TestValidateAdmissionScope(t *testing.T) {
	date := ConcertDate{ID: 7, ConcertID: 42}

	t.Run("date belongs to the admitted concert", func(t *testing.T) {
		assert.NoError(t, ValidateAdmissionScope(date, 42))
	})

	// A token admitted to a cold concert must not open writes on a hot
	// one just because the client names the hot concert's date or seat.
	t.Run("token admits a different concert", func(t *testing.T) {
		assert.ErrorIs(t, ValidateAdmissionScope(date, 43), ErrConcertMismatch)
	})
}
