package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/kafka"
	"github.com/stagepass/stagepass/internal/lock"
	redisx "github.com/stagepass/stagepass/internal/redis"
	"github.com/stagepass/stagepass/internal/repository"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
	"github.com/stagepass/stagepass/internal/service/admission"
	"github.com/stagepass/stagepass/internal/uow"
)

// How long an idempotency key is held by an in-flight request before a
// retry may take over.
const inFlightTTL = 60 * time.Second

type Config struct {
	// How long a PENDING reservation holds its seat.
	HoldWindow time.Duration
	// Lease on the per-seat lock.
	LockLease time.Duration
}

type publisher interface {
	ReservationCreated(e kafka.ReservationCreatedEvent)
}

// Service places seat holds. The per-seat lock serializes buyers of the
// same seat; the conditional status flip inside the transaction is the
// authoritative winner-picker if the lock ever fails open.
type Service struct {
	store     *postgresrepo.Store
	uow       *uow.UoW
	locker    lock.Locker
	cache     *redisrepo.Cache
	idem      *redisrepo.IdempotencyStore
	admission *admission.Service
	pub       publisher
	logger    *slog.Logger
	cfg       Config
}

func New(
	store *postgresrepo.Store,
	locker lock.Locker,
	cache *redisrepo.Cache,
	idem *redisrepo.IdempotencyStore,
	adm *admission.Service,
	pub publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.HoldWindow <= 0 {
		cfg.HoldWindow = 5 * time.Minute
	}

	if cfg.LockLease <= 0 {
		cfg.LockLease = 3 * time.Second
	}

	return &Service{
		store:     store,
		uow:       uow.New(store),
		locker:    locker,
		cache:     cache,
		idem:      idem,
		admission: adm,
		pub:       pub,
		logger:    logger,
		cfg:       cfg,
	}
}

// Reserve places a PENDING hold on the seat for the user. The caller
// must hold an ACTIVE admission token for the concert. idemKey, when
// non-empty, makes retries return the first reservation instead of
// failing on the now-taken seat.
func (s *Service) Reserve(
	ctx context.Context,
	userID, concertID, concertDateID, seatID int64,
	tokenID uuid.UUID,
	idemKey string,
) (*postgresrepo.ReservationWithSeat, error) {
	const op = "service.reservation.Reserve"

	if _, err := s.admission.Validate(ctx, concertID, tokenID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var idemStorageKey string
	if idemKey != "" {
		idemStorageKey = redisrepo.KeyIdemReservation(userID, idemKey)

		if res, ok := s.replay(ctx, idemStorageKey); ok {
			return res, nil
		}

		locked, err := s.idem.AcquireLock(ctx, idemStorageKey, inFlightTTL)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !locked {
			// A concurrent request with the same key is in flight. It
			// may have finished between our read and the lock attempt.
			if res, ok := s.replay(ctx, idemStorageKey); ok {
				return res, nil
			}
			return nil, fmt.Errorf("%s:%w", op, ErrRequestInFlight)
		}
	}

	created, err := s.reserve(ctx, userID, concertID, concertDateID, seatID)
	if err != nil {
		if idemStorageKey != "" {
			_ = s.idem.Release(ctx, idemStorageKey)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if idemStorageKey != "" {
		s.remember(ctx, idemStorageKey, *created)
	}

	return created, nil
}

func (s *Service) reserve(
	ctx context.Context,
	userID, concertID, concertDateID, seatID int64,
) (*postgresrepo.ReservationWithSeat, error) {
	date, err := s.store.Concerts().GetDate(ctx, concertDateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConcertDateNotFound
		}
		return nil, err
	}

	if err := domain.ValidateAdmissionScope(*date, concertID); err != nil {
		return nil, err
	}

	now := time.Now()
	if now.After(date.ReserveBy) {
		return nil, ErrSaleClosed
	}

	// Fast path: reject an obviously taken seat before contending for
	// the lock. The transaction re-checks under the lock.
	seat, err := s.store.Seats().GetForDate(ctx, seatID, concertDateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	if seat.Status != domain.SeatAvailable {
		return nil, ErrSeatUnavailable
	}

	var created postgresrepo.ReservationWithSeat

	err = lock.WithLock(ctx, s.locker, redisx.KeySeatLock(seatID), s.cfg.LockLease, func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
			cur, err := s.store.Seats().With(tx).GetForDate(ctx, seatID, concertDateID)
			if err != nil {
				return err
			}

			if _, err := cur.Reserve(); err != nil {
				return ErrSeatUnavailable
			}

			err = s.store.Seats().With(tx).
				UpdateStatusIfExpected(ctx, seatID, domain.SeatReserved, domain.SeatAvailable)
			if err != nil {
				if errors.Is(err, repository.ErrStaleState) {
					return ErrSeatUnavailable
				}
				return err
			}

			res := domain.NewReservation(userID, seatID, now, s.cfg.HoldWindow)
			if err := s.store.Reservations().With(tx).Create(ctx, res); err != nil {
				return err
			}

			pay := domain.NewPayment(userID, res.ID, cur.PriceCents, now)
			if err := s.store.Payments().With(tx).Create(ctx, pay); err != nil {
				return err
			}

			created = postgresrepo.ReservationWithSeat{
				Reservation: res,
				SeatNo:      cur.SeatNo,
				PriceCents:  cur.PriceCents,
			}

			after(func(ctx context.Context) {
				s.pub.ReservationCreated(kafka.ReservationCreatedEvent{
					ReservationID: res.ID.String(),
					UserID:        userID,
					ConcertID:     concertID,
					SeatID:        seatID,
					AmountCents:   cur.PriceCents,
					ExpiresAt:     res.ExpiresAt,
				})
				_ = s.cache.InvalidateConcertDate(ctx, concertID, concertDateID)
			})

			return nil
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrLockContended
		}
		return nil, err
	}

	return &created, nil
}

// Cancel releases a still-pending hold at the owner's request. The same
// conditional transition the reaper uses, with a CANCELLED terminal
// state instead of EXPIRED.
func (s *Service) Cancel(ctx context.Context, reservationID uuid.UUID, userID int64) error {
	const op = "service.reservation.Cancel"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		res, seat, err := s.store.Reservations().With(tx).GetWithSeat(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		if res.UserID != userID {
			return ErrReservationNotFound
		}

		if _, err := res.Cancel(time.Now()); err != nil {
			return ErrAlreadyFinalized
		}

		err = s.store.Reservations().With(tx).
			UpdateStatusIfExpected(ctx, reservationID, domain.ReservationCancelled, domain.ReservationPending)
		if err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return ErrAlreadyFinalized
			}
			return err
		}

		err = s.store.Seats().With(tx).
			UpdateStatusIfExpected(ctx, seat.ID, domain.SeatAvailable, domain.SeatReserved)
		if err != nil && !errors.Is(err, repository.ErrStaleState) {
			return err
		}

		if err := s.store.Payments().With(tx).CancelByReservation(ctx, reservationID); err != nil {
			return err
		}

		date, err := s.store.Concerts().With(tx).GetDate(ctx, seat.ConcertDateID)
		if err == nil {
			after(func(ctx context.Context) {
				_ = s.cache.InvalidateConcertDate(ctx, date.ConcertID, date.ID)
			})
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Get returns a reservation to its owner.
func (s *Service) Get(ctx context.Context, reservationID uuid.UUID, userID int64) (*postgresrepo.ReservationWithSeat, error) {
	const op = "service.reservation.Get"

	res, seat, err := s.store.Reservations().GetWithSeat(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if res.UserID != userID {
		return nil, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
	}

	return &postgresrepo.ReservationWithSeat{
		Reservation: *res,
		SeatNo:      seat.SeatNo,
		PriceCents:  seat.PriceCents,
	}, nil
}

// ListByUser returns the user's reservations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]postgresrepo.ReservationWithSeat, error) {
	const op = "service.reservation.ListByUser"

	out, err := s.store.Reservations().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) replay(ctx context.Context, storageKey string) (*postgresrepo.ReservationWithSeat, bool) {
	raw, ok, err := s.idem.GetResult(ctx, storageKey)
	if err != nil || !ok {
		return nil, false
	}

	var res postgresrepo.ReservationWithSeat
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, false
	}

	return &res, true
}

func (s *Service) remember(ctx context.Context, storageKey string, res postgresrepo.ReservationWithSeat) {
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}

	if err := s.idem.SaveResult(ctx, storageKey, string(payload)); err != nil {
		s.logger.Warn("save idempotent result", "key", storageKey, "error", err)
	}
}
