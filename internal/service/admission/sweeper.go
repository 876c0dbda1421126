package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/stagepass/stagepass/internal/domain"
)

type concertLister interface {
	ListOpen(ctx context.Context, now time.Time) ([]domain.Concert, error)
}

type sweeper interface {
	Sweep(ctx context.Context, concertID int64) (int, error)
}

// Sweeper periodically promotes waiting tokens for every concert that is
// currently selling. One sweeper per process is enough: the promotion
// script enforces the ceiling, so overlapping sweeps never over-admit.
type Sweeper struct {
	concerts concertLister
	svc      sweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(concerts concertLister, svc sweeper, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Sweeper{
		concerts: concerts,
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("admission sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("admission sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	concerts, err := s.concerts.ListOpen(ctx, time.Now())
	if err != nil {
		s.logger.Error("list open concerts", "error", err)
		return
	}

	for _, c := range concerts {
		promoted, err := s.svc.Sweep(ctx, c.ID)
		if err != nil {
			// One concert failing must not starve the rest.
			s.logger.Error("sweep concert queue", "concert_id", c.ID, "error", err)
			continue
		}

		if promoted > 0 {
			s.logger.Info("tokens promoted", "concert_id", c.ID, "count", promoted)
		}
	}
}
