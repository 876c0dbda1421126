package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PaymentRepo) With(db DB) *PaymentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PaymentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *PaymentRepo) Create(ctx context.Context, p domain.Payment) error {
	const op = "postgres.PaymentRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO payments(id, reservation_id, user_id, amount_cents, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.ReservationID, p.UserID, p.AmountCents, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *PaymentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	const op = "postgres.PaymentRepo.Get"

	return r.getBy(ctx, op, `id`, id)
}

func (r *PaymentRepo) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	const op = "postgres.PaymentRepo.GetByReservation"

	return r.getBy(ctx, op, `reservation_id`, reservationID)
}

func (r *PaymentRepo) getBy(ctx context.Context, op, col string, id uuid.UUID) (*domain.Payment, error) {
	db := r.handle()

	var p domain.Payment
	err := db.QueryRow(ctx,
		`SELECT id, reservation_id, user_id, amount_cents, status, coalesce(failure_reason, ''), created_at, updated_at
		 FROM payments WHERE `+col+` = $1`,
		id,
	).Scan(&p.ID, &p.ReservationID, &p.UserID, &p.AmountCents, &p.Status, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}

// UpdateStatusIfExpected claims or settles the payment with an
// optimistic check on its prior status. A duplicate settlement attempt
// loses the claim and gets ErrStaleState.
func (r *PaymentRepo) UpdateStatusIfExpected(ctx context.Context, id uuid.UUID, next, expected domain.PaymentStatus) error {
	const op = "postgres.PaymentRepo.UpdateStatusIfExpected"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE payments
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

// CancelByReservation settles the reservation's payment as cancelled
// unless it already reached a terminal status. A claim stranded in
// processing by a dead settlement attempt is cancelled too, so an
// expired or withdrawn reservation never pins its payment open.
// Idempotent like MarkFailed.
func (r *PaymentRepo) CancelByReservation(ctx context.Context, reservationID uuid.UUID) error {
	const op = "postgres.PaymentRepo.CancelByReservation"

	db := r.handle()

	_, err := db.Exec(ctx,
		`UPDATE payments
		 SET status = 'cancelled', updated_at = now()
		 WHERE reservation_id = $1 AND status IN ('pending', 'processing')`,
		reservationID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// MarkFailed settles the payment as failed with a reason, regardless of
// whether it was still pending or already claimed as processing.
// Idempotent: a payment already failed or succeeded is left untouched.
func (r *PaymentRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const op = "postgres.PaymentRepo.MarkFailed"

	db := r.handle()

	_, err := db.Exec(ctx,
		`UPDATE payments
		 SET status = 'failed', failure_reason = $2, updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'processing')`,
		id, reason,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
