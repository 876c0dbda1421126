package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

// ReservationWithSeat pairs a reservation with the identity and price
// of the seat it holds, for responses that show the buyer what they
// are holding.
type ReservationWithSeat struct {
	domain.Reservation
	SeatNo     int   `json:"seat_no"`
	PriceCents int64 `json:"price_cents"`
}

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ReservationRepo) Create(ctx context.Context, res domain.Reservation) error {
	const op = "postgres.ReservationRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO reservations(id, user_id, seat_id, status, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.UserID, res.SeatID, res.Status, res.CreatedAt, res.UpdatedAt, res.ExpiresAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.Get"

	db := r.handle()

	var res domain.Reservation
	err := db.QueryRow(ctx,
		`SELECT id, user_id, seat_id, status, created_at, updated_at, expires_at
		 FROM reservations WHERE id = $1`,
		id,
	).Scan(&res.ID, &res.UserID, &res.SeatID, &res.Status, &res.CreatedAt, &res.UpdatedAt, &res.ExpiresAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &res, nil
}

// GetWithSeat loads a reservation together with its seat in one round
// trip; the settlement transaction reads both anyway.
func (r *ReservationRepo) GetWithSeat(ctx context.Context, id uuid.UUID) (*domain.Reservation, *domain.Seat, error) {
	const op = "postgres.ReservationRepo.GetWithSeat"

	db := r.handle()

	var res domain.Reservation
	var s domain.Seat
	err := db.QueryRow(ctx,
		`SELECT r.id, r.user_id, r.seat_id, r.status, r.created_at, r.updated_at, r.expires_at,
		        s.id, s.concert_date_id, s.seat_no, s.price_cents, s.grade, s.status
		 FROM reservations r
		 JOIN seats s ON s.id = r.seat_id
		 WHERE r.id = $1`,
		id,
	).Scan(
		&res.ID, &res.UserID, &res.SeatID, &res.Status, &res.CreatedAt, &res.UpdatedAt, &res.ExpiresAt,
		&s.ID, &s.ConcertDateID, &s.SeatNo, &s.PriceCents, &s.Grade, &s.Status,
	)
	if err != nil {
		return nil, nil, wrapDBErr(op, err)
	}

	return &res, &s, nil
}

// UpdateStatusIfExpected transitions the reservation only while it is
// still in the expected status. The reaper and the payment coordinator
// both go through this; whichever lands first wins and the loser gets
// ErrStaleState.
func (r *ReservationRepo) UpdateStatusIfExpected(ctx context.Context, id uuid.UUID, next, expected domain.ReservationStatus) error {
	const op = "postgres.ReservationRepo.UpdateStatusIfExpected"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE reservations
		 SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, next, expected,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrStaleState)
	}

	return nil
}

// ListExpiredPending returns up to limit reservations whose hold window
// has passed while still pending, oldest first, for one reaper tick.
func (r *ReservationRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	const op = "postgres.ReservationRepo.ListExpiredPending"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id FROM reservations
		 WHERE status = 'pending' AND expires_at <= $1
		 ORDER BY expires_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

// ListByUser supports the "my reservations" listing.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID int64) ([]ReservationWithSeat, error) {
	const op = "postgres.ReservationRepo.ListByUser"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT r.id, r.user_id, r.seat_id, r.status, r.created_at, r.updated_at, r.expires_at,
		        s.seat_no, s.price_cents
		 FROM reservations r
		 JOIN seats s ON s.id = r.seat_id
		 WHERE r.user_id = $1
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []ReservationWithSeat
	for rows.Next() {
		var res ReservationWithSeat
		err := rows.Scan(
			&res.ID, &res.UserID, &res.SeatID, &res.Status, &res.CreatedAt, &res.UpdatedAt, &res.ExpiresAt,
			&res.SeatNo, &res.PriceCents,
		)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
