package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

type SeatRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SeatRepo) With(db DB) *SeatRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *SeatRepo) BatchCreate(ctx context.Context, seats []domain.Seat) error {
	const op = "postgres.SeatRepo.BatchCreate"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO seats(concert_date_id, seat_no, price_cents, grade, status)
			 VALUES ($1, $2, $3, $4, 'available')`,
			s.ConcertDateID, s.SeatNo, s.PriceCents, s.Grade,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *SeatRepo) Get(ctx context.Context, id int64) (*domain.Seat, error) {
	const op = "postgres.SeatRepo.Get"

	db := r.handle()

	var s domain.Seat
	err := db.QueryRow(ctx,
		`SELECT id, concert_date_id, seat_no, price_cents, grade, status
		 FROM seats WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.ConcertDateID, &s.SeatNo, &s.PriceCents, &s.Grade, &s.Status)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

// GetForDate looks the seat up under its concert date, rejecting seat
// ids that belong to a different date.
func (r *SeatRepo) GetForDate(ctx context.Context, id, concertDateID int64) (*domain.Seat, error) {
	const op = "postgres.SeatRepo.GetForDate"

	db := r.handle()

	var s domain.Seat
	err := db.QueryRow(ctx,
		`SELECT id, concert_date_id, seat_no, price_cents, grade, status
		 FROM seats WHERE id = $1 AND concert_date_id = $2`,
		id, concertDateID,
	).Scan(&s.ID, &s.ConcertDateID, &s.SeatNo, &s.PriceCents, &s.Grade, &s.Status)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

func (r *SeatRepo) ListForDate(ctx context.Context, concertDateID int64, onlyAvailable bool) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.ListForDate"

	db := r.handle()

	q := `SELECT id, concert_date_id, seat_no, price_cents, grade, status
	      FROM seats WHERE concert_date_id = $1`
	if onlyAvailable {
		q += ` AND status = 'available'`
	}
	q += ` ORDER BY seat_no`

	rows, err := db.Query(ctx, q, concertDateID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.ConcertDateID, &s.SeatNo, &s.PriceCents, &s.Grade, &s.Status); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// UpdateStatusIfExpected flips the seat status only while the expected
// prior status still holds. The zero-row case is the race loser and is
// reported as ErrStaleState, never applied.
func (r *SeatRepo) UpdateStatusIfExpected(ctx context.Context, id int64, next, expected domain.SeatStatus) error {
	const op = "postgres.SeatRepo.UpdateStatusIfExpected"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats SET status = $2 WHERE id = $1 AND status = $3`,
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

// CountUnassignedForConcert counts unsold seats across every date of a
// concert; zero means the whole concert is sold out.
func (r *SeatRepo) CountUnassignedForConcert(ctx context.Context, concertID int64) (int64, error) {
	const op = "postgres.SeatRepo.CountUnassignedForConcert"

	db := r.handle()

	var n int64
	err := db.QueryRow(ctx,
		`SELECT count(*) FROM seats s
		 JOIN concert_dates d ON d.id = s.concert_date_id
		 WHERE d.concert_id = $1 AND s.status <> 'assigned'`,
		concertID,
	).Scan(&n)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}
