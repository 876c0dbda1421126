package kafka

import "time"

// Topics carrying reservation and payment lifecycle events.
const (
	TopicReservationCreated = "stagepass.reservation.created"
	TopicPaymentSuccess     = "stagepass.payment.success"
	TopicPaymentFailed      = "stagepass.payment.failed"
)

type ReservationCreatedEvent struct {
	ReservationID string    `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	ConcertID     int64     `json:"concert_id"`
	SeatID        int64     `json:"seat_id"`
	AmountCents   int64     `json:"amount_cents"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type PaymentSuccessEvent struct {
	PaymentID     string    `json:"payment_id"`
	ReservationID string    `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	ConcertID     int64     `json:"concert_id"`
	SeatID        int64     `json:"seat_id"`
	AmountCents   int64     `json:"amount_cents"`
	PaidAt        time.Time `json:"paid_at"`
}

type PaymentFailedEvent struct {
	PaymentID     string `json:"payment_id"`
	ReservationID string `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	SeatID        int64  `json:"seat_id"`
	AmountCents   int64  `json:"amount_cents"`
	Reason        string `json:"reason"`
}
