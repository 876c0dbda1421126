// Package rank maintains the sold-out leaderboard from payment.success
// events. Ranking is a convenience view: failures are logged and never
// block or fail a settlement.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/kafka"
)

const (
	updateAttempts = 3
	updateBackoff  = time.Second
)

type seatCounter interface {
	CountUnassignedForConcert(ctx context.Context, concertID int64) (int64, error)
}

type concertGetter interface {
	Get(ctx context.Context, id int64) (*domain.Concert, error)
}

type ranker interface {
	Update(ctx context.Context, concertID int64, scoreMillis int64) (int64, error)
	Top(ctx context.Context, n int64) ([]domain.SoldOutRankEntry, error)
}

// Listener handles payment.success events: when the paid seat was the
// concert's last one, the concert enters the leaderboard scored by how
// fast it sold out.
type Listener struct {
	seats    seatCounter
	concerts concertGetter
	rank     ranker
	logger   *slog.Logger
}

func NewListener(seats seatCounter, concerts concertGetter, rank ranker, logger *slog.Logger) *Listener {
	return &Listener{
		seats:    seats,
		concerts: concerts,
		rank:     rank,
		logger:   logger,
	}
}

// HandlePaymentSuccess implements kafka.PaymentSuccessHandler. Errors
// before the sold-out check propagate so the message is redelivered;
// after that the update is retried in place and, if it still fails,
// dropped with a log line. The leaderboard script is insert-if-better,
// so duplicate deliveries are harmless.
func (l *Listener) HandlePaymentSuccess(ctx context.Context, event kafka.PaymentSuccessEvent) error {
	remaining, err := l.seats.CountUnassignedForConcert(ctx, event.ConcertID)
	if err != nil {
		return fmt.Errorf("count unassigned seats: %w", err)
	}

	if remaining > 0 {
		return nil
	}

	concert, err := l.concerts.Get(ctx, event.ConcertID)
	if err != nil {
		return fmt.Errorf("load concert %d: %w", event.ConcertID, err)
	}

	score := event.PaidAt.Sub(concert.OpenedAt).Milliseconds()
	if score < 0 {
		score = 0
	}

	var rank int64
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		rank, err = l.rank.Update(ctx, event.ConcertID, score)
		if err == nil {
			break
		}

		l.logger.Warn("rank update failed",
			"concert_id", event.ConcertID, "attempt", attempt, "error", err)

		if attempt < updateAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(updateBackoff):
			}
		}
	}
	if err != nil {
		l.logger.Error("rank update dropped after retries",
			"concert_id", event.ConcertID, "score_ms", score, "error", err)
		return nil
	}

	l.logger.Info("concert sold out",
		"concert_id", event.ConcertID, "score_ms", score, "rank", rank)
	return nil
}

// Top returns the fastest sell-outs, best first.
func (l *Listener) Top(ctx context.Context, n int64) ([]domain.SoldOutRankEntry, error) {
	return l.rank.Top(ctx, n)
}
