package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagepass/stagepass/internal/domain"
	redisx "github.com/stagepass/stagepass/internal/redis"
	"github.com/stagepass/stagepass/internal/repository"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
)

var ErrConcertNotFound = errors.New("concert not found")

type Config struct {
	// TTL on cached catalogue reads. Short on purpose: availability
	// changes with every hold and the cache is also invalidated after
	// commit, the TTL only bounds staleness if an invalidation is lost.
	CacheTTL time.Duration
}

// Service is the read side of the catalogue: concerts, dates with
// remaining seat counts, and per-date seat maps.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// ListConcerts returns concerts currently selling.
func (s *Service) ListConcerts(ctx context.Context) ([]domain.Concert, error) {
	const op = "service.query.ListConcerts"

	out, err := s.store.Concerts().ListOpen(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetConcert returns one concert.
func (s *Service) GetConcert(ctx context.Context, id int64) (*domain.Concert, error) {
	const op = "service.query.GetConcert"

	c, err := s.store.Concerts().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrConcertNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

// ListDates returns the concert's dates with remaining availability,
// served from cache under singleflight so a hot concert page does not
// stampede the database.
func (s *Service) ListDates(ctx context.Context, concertID int64) ([]postgresrepo.DateWithAvailability, error) {
	const op = "service.query.ListDates"

	ok, err := s.store.Concerts().Exists(ctx, concertID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrConcertNotFound)
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyConcertDates(concertID), s.cfg.CacheTTL,
		func(ctx context.Context) ([]postgresrepo.DateWithAvailability, error) {
			return s.store.Concerts().ListDates(ctx, concertID)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListSeats returns the seats of a concert date, optionally only the
// available ones. The full seat map is cached; the available-only view
// is filtered from it.
func (s *Service) ListSeats(ctx context.Context, concertDateID int64, onlyAvailable bool) ([]domain.Seat, error) {
	const op = "service.query.ListSeats"

	seats, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyDateSeats(concertDateID), s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.Seat, error) {
			return s.store.Seats().ListForDate(ctx, concertDateID, false)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !onlyAvailable {
		return seats, nil
	}

	avail := make([]domain.Seat, 0, len(seats))
	for _, seat := range seats {
		if seat.Status == domain.SeatAvailable {
			avail = append(avail, seat)
		}
	}

	return avail, nil
}
