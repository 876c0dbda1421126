package httpgin

import (
	"time"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository/postgres"
)

type CreateReservationRequest struct {
	UserID        int64  `json:"user_id" binding:"required"`
	ConcertID     int64  `json:"concert_id" binding:"required"`
	ConcertDateID int64  `json:"concert_date_id" binding:"required"`
	SeatID        int64  `json:"seat_id" binding:"required"`
	TokenID       string `json:"token_id" binding:"omitempty,uuid"`
}

type SettlePaymentRequest struct {
	ReservationID string `json:"reservation_id" binding:"required,uuid"`
	ConcertID     int64  `json:"concert_id" binding:"required"`
	TokenID       string `json:"token_id" binding:"omitempty,uuid"`
	AmountCents   int64  `json:"amount_cents" binding:"required,gt=0"`
}

type RegisterUserRequest struct {
	BalanceCents int64 `json:"balance_cents" binding:"gte=0"`
}

type ChargeRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

type CreateConcertRequest struct {
	Title    string `json:"title" binding:"required"`
	OpenedAt string `json:"opened_at" binding:"required"`
	ClosedAt string `json:"closed_at" binding:"required"`
}

type CreateDateRequest struct {
	StartsAt  string `json:"starts_at" binding:"required"`
	ReserveBy string `json:"reserve_by" binding:"required"`
}

type SeatInput struct {
	SeatNo     int    `json:"seat_no" binding:"required,gt=0"`
	Grade      string `json:"grade" binding:"required,oneof=vip royal standard"`
	PriceCents int64  `json:"price_cents" binding:"required,gt=0"`
}

type BatchCreateSeatsRequest struct {
	ConcertID int64       `json:"concert_id" binding:"required"`
	Seats     []SeatInput `json:"seats" binding:"required,min=1,dive"`
}

// ErrorResponse carries a stable machine-readable code next to the
// human-readable detail.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type TokenResponse struct {
	TokenID  string `json:"token_id"`
	Status   string `json:"status"`
	Position int64  `json:"position,omitempty"`
}

type QueueStatsResponse struct {
	ConcertID int64 `json:"concert_id"`
	Active    int64 `json:"active"`
	Waiting   int64 `json:"waiting"`
}

type ReservationResponse struct {
	ReservationID string    `json:"reservation_id"`
	SeatID        int64     `json:"seat_id"`
	SeatNo        int       `json:"seat_no"`
	PriceCents    int64     `json:"price_cents"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type PaymentResponse struct {
	PaymentID     string `json:"payment_id"`
	ReservationID string `json:"reservation_id"`
	AmountCents   int64  `json:"amount_cents"`
	Status        string `json:"status"`
}

type BalanceResponse struct {
	UserID       int64 `json:"user_id"`
	BalanceCents int64 `json:"balance_cents"`
}

type CreateConcertResponse struct {
	ConcertID int64 `json:"concert_id"`
}

type CreateDateResponse struct {
	ConcertDateID int64 `json:"concert_date_id"`
}

func toTokenResponse(tok *domain.QueueToken) TokenResponse {
	return TokenResponse{
		TokenID:  tok.ID.String(),
		Status:   string(tok.Status),
		Position: tok.Position,
	}
}

func toReservationResponse(res *postgres.ReservationWithSeat) ReservationResponse {
	return ReservationResponse{
		ReservationID: res.ID.String(),
		SeatID:        res.SeatID,
		SeatNo:        res.SeatNo,
		PriceCents:    res.PriceCents,
		Status:        string(res.Status),
		CreatedAt:     res.CreatedAt,
		ExpiresAt:     res.ExpiresAt,
	}
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:     p.ID.String(),
		ReservationID: p.ReservationID.String(),
		AmountCents:   p.AmountCents,
		Status:        string(p.Status),
	}
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
