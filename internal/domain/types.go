package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatAssigned  SeatStatus = "assigned"
)

type SeatGrade string

const (
	GradeVIP      SeatGrade = "vip"
	GradeRoyal    SeatGrade = "royal"
	GradeStandard SeatGrade = "standard"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationSuccess   ReservationStatus = "success"
	ReservationFailed    ReservationStatus = "failed"
	ReservationExpired   ReservationStatus = "expired"
	ReservationCancelled ReservationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccess    PaymentStatus = "success"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

type TokenStatus string

const (
	TokenWaiting TokenStatus = "waiting"
	TokenActive  TokenStatus = "active"
	TokenExpired TokenStatus = "expired"
)

type User struct {
	ID           int64
	BalanceCents int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Concert struct {
	ID       int64
	Title    string
	OpenedAt time.Time
	ClosedAt time.Time
}

// Open reports whether the concert is currently selling.
func (c Concert) Open(now time.Time) bool {
	return !now.Before(c.OpenedAt) && now.Before(c.ClosedAt)
}

type ConcertDate struct {
	ID        int64
	ConcertID int64
	StartsAt  time.Time
	// Deadline after which no new reservations are accepted for this date.
	ReserveBy time.Time
}

type Seat struct {
	ID            int64
	ConcertDateID int64
	SeatNo        int
	PriceCents    int64
	Grade         SeatGrade
	Status        SeatStatus
}

type Reservation struct {
	ID        uuid.UUID
	UserID    int64
	SeatID    int64
	Status    ReservationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// NewReservation creates a PENDING reservation holding the seat until
// now+hold.
func NewReservation(userID int64, seatID int64, now time.Time, hold time.Duration) Reservation {
	return Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		SeatID:    seatID,
		Status:    ReservationPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(hold),
	}
}

func (r Reservation) Pending() bool { return r.Status == ReservationPending }

// ExpiredAt reports whether the hold window has passed while the
// reservation is still pending.
func (r Reservation) ExpiredAt(now time.Time) bool {
	return r.Status == ReservationPending && !r.ExpiresAt.After(now)
}

type Payment struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	UserID        int64
	AmountCents   int64
	Status        PaymentStatus
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPayment creates the PENDING payment paired 1:1 with a reservation.
// The amount is fixed to the seat price at reservation time.
func NewPayment(userID int64, reservationID uuid.UUID, amountCents int64, now time.Time) Payment {
	return Payment{
		ID:            uuid.New(),
		ReservationID: reservationID,
		UserID:        userID,
		AmountCents:   amountCents,
		Status:        PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

type QueueToken struct {
	ID          uuid.UUID   `json:"id"`
	UserID      int64       `json:"user_id"`
	ConcertID   int64       `json:"concert_id"`
	Status      TokenStatus `json:"status"`
	Position    int64       `json:"position"`
	IssuedAt    time.Time   `json:"issued_at"`
	ActivatedAt time.Time   `json:"activated_at,omitempty"`
}

func (t QueueToken) Active() bool { return t.Status == TokenActive }

// Stale reports whether an active token has exceeded the inactivity TTL
// and no longer admits its holder.
func (t QueueToken) Stale(now time.Time, ttl time.Duration) bool {
	return t.Status == TokenActive && !t.ActivatedAt.IsZero() &&
		now.Sub(t.ActivatedAt) > ttl
}

type SoldOutRankEntry struct {
	ConcertID int64 `json:"concert_id"`
	// Milliseconds from sales open to the last seat being assigned.
	ScoreMillis int64 `json:"score_millis"`
	Rank        int64 `json:"rank"`
}
