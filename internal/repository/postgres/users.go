package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *UserRepo) Create(ctx context.Context, balanceCents int64) (*domain.User, error) {
	const op = "postgres.UserRepo.Create"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`INSERT INTO users(balance_cents)
		 VALUES ($1)
		 RETURNING id, balance_cents, created_at, updated_at`,
		balanceCents,
	).Scan(&u.ID, &u.BalanceCents, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.Get"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, balance_cents, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.BalanceCents, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

// Charge credits the balance atomically and returns the new amount.
func (r *UserRepo) Charge(ctx context.Context, id int64, amountCents int64) (int64, error) {
	const op = "postgres.UserRepo.Charge"

	db := r.handle()

	var balance int64
	err := db.QueryRow(ctx,
		`UPDATE users
		 SET balance_cents = balance_cents + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING balance_cents`,
		id, amountCents,
	).Scan(&balance)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return balance, nil
}

// Debit decrements the balance only when it covers the amount; the
// condition is in the statement itself so concurrent charges cannot
// lose updates or drive the balance negative.
func (r *UserRepo) Debit(ctx context.Context, id int64, amountCents int64) (int64, error) {
	const op = "postgres.UserRepo.Debit"

	db := r.handle()

	var balance int64
	err := db.QueryRow(ctx,
		`UPDATE users
		 SET balance_cents = balance_cents - $2, updated_at = now()
		 WHERE id = $1 AND balance_cents >= $2
		 RETURNING balance_cents`,
		id, amountCents,
	).Scan(&balance)
	if err != nil {
		// Distinguish "no such user" from "not enough balance".
		wrapped := wrapDBErr(op, err)
		if exists, exErr := r.exists(ctx, id); exErr == nil && exists {
			return 0, wrapDBErr(op, repository.ErrInsufficientBalance)
		}
		return 0, wrapped
	}

	return balance, nil
}

func (r *UserRepo) exists(ctx context.Context, id int64) (bool, error) {
	db := r.handle()

	var ok bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id,
	).Scan(&ok)

	return ok, err
}
