package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagepass/stagepass/internal/domain"
)

type ConcertRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ConcertRepo) With(db DB) *ConcertRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ConcertRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ConcertRepo) Create(ctx context.Context, title string, openedAt, closedAt time.Time) (int64, error) {
	const op = "postgres.ConcertRepo.Create"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO concerts(title, opened_at, closed_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		title, openedAt, closedAt,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *ConcertRepo) Get(ctx context.Context, id int64) (*domain.Concert, error) {
	const op = "postgres.ConcertRepo.Get"

	db := r.handle()

	var c domain.Concert
	err := db.QueryRow(ctx,
		`SELECT id, title, opened_at, closed_at FROM concerts WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Title, &c.OpenedAt, &c.ClosedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *ConcertRepo) List(ctx context.Context) ([]domain.Concert, error) {
	const op = "postgres.ConcertRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, title, opened_at, closed_at FROM concerts ORDER BY opened_at`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return scanConcerts(op, rows)
}

// ListOpen returns concerts currently selling; the promotion sweep only
// admits shoppers into these.
func (r *ConcertRepo) ListOpen(ctx context.Context, now time.Time) ([]domain.Concert, error) {
	const op = "postgres.ConcertRepo.ListOpen"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, title, opened_at, closed_at
		 FROM concerts
		 WHERE opened_at <= $1 AND closed_at > $1
		 ORDER BY id`,
		now,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return scanConcerts(op, rows)
}

func (r *ConcertRepo) Exists(ctx context.Context, id int64) (bool, error) {
	const op = "postgres.ConcertRepo.Exists"

	db := r.handle()

	var ok bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM concerts WHERE id = $1)`, id,
	).Scan(&ok)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return ok, nil
}

func (r *ConcertRepo) CreateDate(ctx context.Context, concertID int64, startsAt, reserveBy time.Time) (int64, error) {
	const op = "postgres.ConcertRepo.CreateDate"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO concert_dates(concert_id, starts_at, reserve_by)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		concertID, startsAt, reserveBy,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *ConcertRepo) GetDate(ctx context.Context, id int64) (*domain.ConcertDate, error) {
	const op = "postgres.ConcertRepo.GetDate"

	db := r.handle()

	var d domain.ConcertDate
	err := db.QueryRow(ctx,
		`SELECT id, concert_id, starts_at, reserve_by
		 FROM concert_dates WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.ConcertID, &d.StartsAt, &d.ReserveBy)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

// DateWithAvailability pairs a concert date with its remaining seat
// count for the listing endpoint.
type DateWithAvailability struct {
	domain.ConcertDate
	AvailableSeats int64 `json:"available_seats"`
}

func (r *ConcertRepo) ListDates(ctx context.Context, concertID int64) ([]DateWithAvailability, error) {
	const op = "postgres.ConcertRepo.ListDates"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT d.id, d.concert_id, d.starts_at, d.reserve_by,
		        count(s.id) FILTER (WHERE s.status = 'available')
		 FROM concert_dates d
		 LEFT JOIN seats s ON s.concert_date_id = d.id
		 WHERE d.concert_id = $1
		 GROUP BY d.id
		 ORDER BY d.starts_at`,
		concertID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []DateWithAvailability
	for rows.Next() {
		var d DateWithAvailability
		if err := rows.Scan(&d.ID, &d.ConcertID, &d.StartsAt, &d.ReserveBy, &d.AvailableSeats); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanConcerts(op string, rows pgx.Rows) ([]domain.Concert, error) {
	defer rows.Close()

	var out []domain.Concert
	for rows.Next() {
		var c domain.Concert
		if err := rows.Scan(&c.ID, &c.Title, &c.OpenedAt, &c.ClosedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
