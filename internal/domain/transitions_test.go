package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    SeatStatus
		apply   func(Seat) (Seat, error)
		want    SeatStatus
		wantErr bool
	}{
		{"reserve available", SeatAvailable, Seat.Reserve, SeatReserved, false},
		{"reserve reserved", SeatReserved, Seat.Reserve, SeatReserved, true},
		{"reserve assigned", SeatAssigned, Seat.Reserve, SeatAssigned, true},
		{"assign reserved", SeatReserved, Seat.Assign, SeatAssigned, false},
		{"assign available", SeatAvailable, Seat.Assign, SeatAvailable, true},
		{"release reserved", SeatReserved, Seat.Release, SeatAvailable, false},
		{"release assigned", SeatAssigned, Seat.Release, SeatAssigned, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.apply(Seat{Status: tt.from})
			if tt.wantErr {
				require.Error(t, err)
				var te *TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, "seat", te.Entity)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestReservationTransitions(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		from    ReservationStatus
		apply   func(Reservation, time.Time) (Reservation, error)
		want    ReservationStatus
		wantErr bool
	}{
		{"succeed pending", ReservationPending, Reservation.Succeed, ReservationSuccess, false},
		{"succeed expired", ReservationExpired, Reservation.Succeed, ReservationExpired, true},
		{"fail pending", ReservationPending, Reservation.Fail, ReservationFailed, false},
		{"fail success", ReservationSuccess, Reservation.Fail, ReservationSuccess, true},
		{"expire pending", ReservationPending, Reservation.Expire, ReservationExpired, false},
		{"expire cancelled", ReservationCancelled, Reservation.Expire, ReservationCancelled, true},
		{"cancel pending", ReservationPending, Reservation.Cancel, ReservationCancelled, false},
		{"cancel success", ReservationSuccess, Reservation.Cancel, ReservationSuccess, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.apply(Reservation{Status: tt.from}, now)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, now, got.UpdatedAt)
			}
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestPaymentTransitions(t *testing.T) {
	now := time.Now()

	t.Run("happy path pending to success", func(t *testing.T) {
		p := NewPayment(1, uuid.New(), 5000, now)

		p, err := p.Process(now)
		require.NoError(t, err)
		assert.Equal(t, PaymentProcessing, p.Status)

		p, err = p.Succeed(now)
		require.NoError(t, err)
		assert.Equal(t, PaymentSuccess, p.Status)
	})

	t.Run("double claim rejected", func(t *testing.T) {
		p := Payment{Status: PaymentProcessing}
		_, err := p.Process(now)
		require.Error(t, err)
	})

	t.Run("succeed requires processing", func(t *testing.T) {
		p := Payment{Status: PaymentPending}
		_, err := p.Succeed(now)
		require.Error(t, err)
	})

	t.Run("fail works from pending and processing", func(t *testing.T) {
		for _, from := range []PaymentStatus{PaymentPending, PaymentProcessing} {
			p, err := Payment{Status: from}.Fail(now, "insufficient balance")
			require.NoError(t, err)
			assert.Equal(t, PaymentFailed, p.Status)
			assert.Equal(t, "insufficient balance", p.FailureReason)
		}
	})

	t.Run("fail is terminal", func(t *testing.T) {
		_, err := Payment{Status: PaymentFailed}.Fail(now, "again")
		require.Error(t, err)
	})
}

func TestReservationExpiredAt(t *testing.T) {
	now := time.Now()
	res := NewReservation(1, 2, now, 5*time.Minute)

	assert.False(t, res.ExpiredAt(now))
	assert.False(t, res.ExpiredAt(now.Add(5*time.Minute-time.Second)))
	assert.True(t, res.ExpiredAt(now.Add(5*time.Minute)))

	// Non-pending holds never count as expired, whatever the clock says.
	done, err := res.Succeed(now)
	require.NoError(t, err)
	assert.False(t, done.ExpiredAt(now.Add(time.Hour)))
}

func TestQueueTokenStale(t *testing.T) {
	now := time.Now()

	tok := QueueToken{Status: TokenActive, ActivatedAt: now.Add(-2 * time.Minute)}
	assert.True(t, tok.Stale(now, time.Minute))
	assert.False(t, tok.Stale(now, 5*time.Minute))

	// A waiting token has no activity window to exceed.
	waiting := QueueToken{Status: TokenWaiting}
	assert.False(t, waiting.Stale(now, time.Minute))
}
