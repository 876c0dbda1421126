// Package reaper returns seats held by expired PENDING reservations to
// the sale. A single global lock keeps the batch from running on more
// than one instance at a time; contention just skips the tick.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/lock"
	redisx "github.com/stagepass/stagepass/internal/redis"
	"github.com/stagepass/stagepass/internal/repository"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
	"github.com/stagepass/stagepass/internal/uow"
)

type Config struct {
	Interval  time.Duration
	BatchSize int
	LockLease time.Duration
}

// Expirer lists overdue reservations and expires them one at a time.
type Expirer interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) error
}

// Worker drives the expiration batch on a timer.
type Worker struct {
	expirer Expirer
	locker  lock.Locker
	logger  *slog.Logger
	cfg     Config
}

func NewWorker(expirer Expirer, locker lock.Locker, logger *slog.Logger, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}

	if cfg.LockLease <= 0 {
		cfg.LockLease = 30 * time.Second
	}

	return &Worker{
		expirer: expirer,
		locker:  locker,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run blocks until ctx is cancelled, reaping on every tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("reservation reaper started",
		"interval", w.cfg.Interval, "batch_size", w.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reservation reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one batch under the global lock. If another instance holds
// the lock the tick is skipped; its batch covers the same backlog.
func (w *Worker) Tick(ctx context.Context) {
	err := lock.WithLock(ctx, w.locker, redisx.KeyExpireBatchLock(), w.cfg.LockLease, func(ctx context.Context) error {
		return w.reap(ctx)
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			w.logger.Debug("expire batch lock held elsewhere, skipping tick")
			return
		}
		w.logger.Error("expire batch failed", "error", err)
	}
}

func (w *Worker) reap(ctx context.Context) error {
	now := time.Now()

	ids, err := w.expirer.ListExpired(ctx, now, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list expired reservations: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	var done int
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		// One bad row must not poison the batch.
		if err := w.expirer.ExpireOne(ctx, id, now); err != nil {
			w.logger.Error("expire reservation", "reservation_id", id, "error", err)
			continue
		}
		done++
	}

	w.logger.Info("expire batch finished", "listed", len(ids), "expired", done)
	return nil
}

// StoreExpirer is the production Expirer backed by the relational store.
type StoreExpirer struct {
	store *postgresrepo.Store
	uow   *uow.UoW
	cache *redisrepo.Cache
}

func NewStoreExpirer(store *postgresrepo.Store, cache *redisrepo.Cache) *StoreExpirer {
	return &StoreExpirer{
		store: store,
		uow:   uow.New(store),
		cache: cache,
	}
}

func (e *StoreExpirer) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return e.store.Reservations().ListExpiredPending(ctx, now, limit)
}

// ExpireOne runs the cancellation transition for a single reservation in
// its own transaction. Every write is conditional on the prior state, so
// a settlement that slipped in after the listing wins and this becomes a
// no-op.
func (e *StoreExpirer) ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) error {
	return e.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		res, seat, err := e.store.Reservations().With(tx).GetWithSeat(ctx, id)
		if err != nil {
			return err
		}

		if !res.ExpiredAt(now) {
			return nil
		}

		err = e.store.Reservations().With(tx).
			UpdateStatusIfExpected(ctx, id, domain.ReservationExpired, domain.ReservationPending)
		if err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return nil
			}
			return err
		}

		err = e.store.Seats().With(tx).
			UpdateStatusIfExpected(ctx, seat.ID, domain.SeatAvailable, domain.SeatReserved)
		if err != nil && !errors.Is(err, repository.ErrStaleState) {
			return err
		}

		if err := e.store.Payments().With(tx).CancelByReservation(ctx, id); err != nil {
			return err
		}

		date, err := e.store.Concerts().With(tx).GetDate(ctx, seat.ConcertDateID)
		if err == nil {
			after(func(ctx context.Context) {
				_ = e.cache.InvalidateConcertDate(ctx, date.ConcertID, date.ID)
			})
		}

		return nil
	})
}
