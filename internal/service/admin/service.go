package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
	"github.com/stagepass/stagepass/internal/uow"
)

var (
	ErrInvalidSchedule = errors.New("invalid sale schedule")
	ErrConcertNotFound = errors.New("concert not found")
	ErrSeatConflict    = errors.New("seat already exists for this date")
)

// Service is the operator surface: creating concerts, their dates, and
// the seat inventory buyers compete for.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
		uow:   uow.New(store),
	}
}

// CreateConcert creates a concert with its sale window.
func (s *Service) CreateConcert(ctx context.Context, title string, openedAt, closedAt time.Time) (int64, error) {
	const op = "service.admin.CreateConcert"

	if !closedAt.After(openedAt) {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidSchedule)
	}

	id, err := s.store.Concerts().Create(ctx, title, openedAt, closedAt)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// CreateDate adds a performance date with its reservation deadline.
func (s *Service) CreateDate(ctx context.Context, concertID int64, startsAt, reserveBy time.Time) (int64, error) {
	const op = "service.admin.CreateDate"

	if !startsAt.After(reserveBy) {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidSchedule)
	}

	ok, err := s.store.Concerts().Exists(ctx, concertID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return 0, fmt.Errorf("%s:%w", op, ErrConcertNotFound)
	}

	var id int64
	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		id, err = s.store.Concerts().With(tx).CreateDate(ctx, concertID, startsAt, reserveBy)
		if err != nil {
			return err
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateConcertDate(ctx, concertID, id)
		})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// SeatSpec describes one seat to create.
type SeatSpec struct {
	SeatNo     int
	Grade      domain.SeatGrade
	PriceCents int64
}

// BatchCreateSeats creates the seat inventory for a date in one
// transaction. All seats start AVAILABLE.
func (s *Service) BatchCreateSeats(ctx context.Context, concertID, concertDateID int64, specs []SeatSpec) error {
	const op = "service.admin.BatchCreateSeats"

	if _, err := s.store.Concerts().GetDate(ctx, concertDateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrConcertNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	seats := make([]domain.Seat, 0, len(specs))
	for _, spec := range specs {
		seats = append(seats, domain.Seat{
			ConcertDateID: concertDateID,
			SeatNo:        spec.SeatNo,
			PriceCents:    spec.PriceCents,
			Grade:         spec.Grade,
			Status:        domain.SeatAvailable,
		})
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Seats().With(tx).BatchCreate(ctx, seats); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSeatConflict
			}
			return err
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateConcertDate(ctx, concertID, concertDateID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
