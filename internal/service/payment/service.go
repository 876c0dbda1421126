package payment

import (
	"context"
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

type Config struct {
	// Lease on the user and reservation locks held across settlement.
	LockLease time.Duration
}

type publisher interface {
	PaymentSuccess(e kafka.PaymentSuccessEvent)
	PaymentFailed(e kafka.PaymentFailedEvent)
}

// Service settles payments for pending reservations. Money only moves
// inside the settlement transaction, and every status write is
// conditional on the expected prior state, so a reaper or a duplicate
// request racing this path loses cleanly instead of double-applying.
type Service struct {
	store     *postgresrepo.Store
	uow       *uow.UoW
	locker    lock.Locker
	cache     *redisrepo.Cache
	admission *admission.Service
	pub       publisher
	logger    *slog.Logger
	cfg       Config
}

func New(
	store *postgresrepo.Store,
	locker lock.Locker,
	cache *redisrepo.Cache,
	adm *admission.Service,
	pub publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.LockLease <= 0 {
		cfg.LockLease = 3 * time.Second
	}

	return &Service{
		store:     store,
		uow:       uow.New(store),
		locker:    locker,
		cache:     cache,
		admission: adm,
		pub:       pub,
		logger:    logger,
		cfg:       cfg,
	}
}

// Settle debits the buyer and finalizes the reservation. declaredCents
// must match the seat price captured at reservation time. On any
// precondition failure after the payment is claimed, the claim is
// settled as FAILED and the seat is released.
//
// Returns:
//   - domain.ErrAlreadyProcessed if the payment was claimed before.
//   - domain.ErrInvalidAmount on a price mismatch.
//   - domain.ErrInsufficientBalance when the buyer cannot cover it.
//   - admission.ErrNotAdmitted without an ACTIVE token.
func (s *Service) Settle(
	ctx context.Context,
	reservationID uuid.UUID,
	concertID int64,
	tokenID uuid.UUID,
	declaredCents int64,
) (*domain.Payment, error) {
	const op = "service.payment.Settle"

	tok, err := s.admission.Validate(ctx, concertID, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	pay, err := s.store.Payments().GetByReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if pay.UserID != tok.UserID {
		return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
	}

	// The token admits one concert; the reservation must belong to it.
	// Derived from the seat's date, never from client input.
	_, seat, err := s.store.Reservations().GetWithSeat(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	date, err := s.store.Concerts().GetDate(ctx, seat.ConcertDateID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := domain.ValidateAdmissionScope(*date, concertID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// User lock first, then reservation lock. Every settlement path
	// takes them in this order, so two of them cannot deadlock.
	var settled *domain.Payment
	err = lock.WithLock(ctx, s.locker, redisx.KeyUserLock(pay.UserID), s.cfg.LockLease, func(ctx context.Context) error {
		return lock.WithLock(ctx, s.locker, redisx.KeyReservationLock(reservationID), s.cfg.LockLease, func(ctx context.Context) error {
			p, err := s.settle(ctx, pay.ID, reservationID, concertID, tokenID, declaredCents)
			if err != nil {
				return err
			}
			settled = p
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("%s:%w", op, ErrLockContended)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return settled, nil
}

func (s *Service) settle(
	ctx context.Context,
	paymentID, reservationID uuid.UUID,
	concertID int64,
	tokenID uuid.UUID,
	declaredCents int64,
) (*domain.Payment, error) {
	// Claim the payment before doing anything else. Exactly one caller
	// wins the PENDING -> PROCESSING flip. A payment found already in
	// PROCESSING was claimed by an attempt that died before settling;
	// the user and reservation locks serialize settlement, so the
	// retry holding them may re-enter the claim. Anything else stays
	// settled.
	err := s.store.Payments().UpdateStatusIfExpected(ctx, paymentID, domain.PaymentProcessing, domain.PaymentPending)
	if err != nil {
		if !errors.Is(err, repository.ErrStaleState) {
			return nil, err
		}

		cur, gerr := s.store.Payments().Get(ctx, paymentID)
		if gerr != nil {
			return nil, gerr
		}
		if err := reclaim(cur.Status); err != nil {
			return nil, err
		}
	}

	var out domain.Payment

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		pay, err := s.store.Payments().With(tx).Get(ctx, paymentID)
		if err != nil {
			return err
		}

		res, seat, err := s.store.Reservations().With(tx).GetWithSeat(ctx, reservationID)
		if err != nil {
			return err
		}

		user, err := s.store.Users().With(tx).Get(ctx, pay.UserID)
		if err != nil {
			return err
		}

		if err := domain.ValidateSettlement(*pay, *res, *seat, user.BalanceCents, declaredCents); err != nil {
			return err
		}

		now := time.Now()

		if _, err := s.store.Users().With(tx).Debit(ctx, pay.UserID, pay.AmountCents); err != nil {
			return err
		}

		err = s.store.Reservations().With(tx).
			UpdateStatusIfExpected(ctx, reservationID, domain.ReservationSuccess, domain.ReservationPending)
		if err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return domain.ErrReservationNotPending
			}
			return err
		}

		err = s.store.Seats().With(tx).
			UpdateStatusIfExpected(ctx, seat.ID, domain.SeatAssigned, domain.SeatReserved)
		if err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return domain.ErrSeatNotReserved
			}
			return err
		}

		err = s.store.Payments().With(tx).
			UpdateStatusIfExpected(ctx, paymentID, domain.PaymentSuccess, domain.PaymentProcessing)
		if err != nil {
			return err
		}

		done, err := pay.Succeed(now)
		if err != nil {
			return err
		}
		out = done

		date, derr := s.store.Concerts().With(tx).GetDate(ctx, seat.ConcertDateID)

		after(func(ctx context.Context) {
			s.pub.PaymentSuccess(kafka.PaymentSuccessEvent{
				PaymentID:     paymentID.String(),
				ReservationID: reservationID.String(),
				UserID:        pay.UserID,
				ConcertID:     concertID,
				SeatID:        seat.ID,
				AmountCents:   pay.AmountCents,
				PaidAt:        now,
			})

			if err := s.admission.Complete(ctx, concertID, tokenID); err != nil {
				s.logger.Warn("complete admission token",
					"token_id", tokenID, "error", err)
			}

			if derr == nil {
				_ = s.cache.InvalidateConcertDate(ctx, date.ConcertID, date.ID)
			}
		})

		return nil
	})
	if err != nil {
		if failure := settlementFailure(err); failure != "" {
			if cerr := s.compensate(ctx, paymentID, failure); cerr != nil {
				s.logger.Error("compensate failed settlement",
					"payment_id", paymentID, "reason", failure, "error", cerr)
				return nil, errors.Join(err, cerr)
			}
		}
		return nil, err
	}

	return &out, nil
}

// reclaim resolves a lost PENDING -> PROCESSING flip. Only a payment
// sitting in PROCESSING, the claim of an earlier attempt that never
// finished, may be settled again.
func reclaim(status domain.PaymentStatus) error {
	if status == domain.PaymentProcessing {
		return nil
	}
	return domain.ErrAlreadyProcessed
}

// settlementFailure maps an error from the settlement transaction to a
// stored failure reason. An empty string means the error is transient
// and the claim should be retried by the client, not compensated.
func settlementFailure(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "amount mismatch"
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, repository.ErrInsufficientBalance):
		return "insufficient balance"
	case errors.Is(err, domain.ErrReservationNotPending):
		return "reservation no longer pending"
	case errors.Is(err, domain.ErrSeatNotReserved):
		return "seat no longer reserved"
	default:
		return ""
	}
}

// compensate settles a claimed payment as FAILED and puts the seat back
// on sale. Every write is conditional, so replaying compensation after
// a crash cannot clobber a reservation someone else has since won.
func (s *Service) compensate(ctx context.Context, paymentID uuid.UUID, reason string) error {
	const op = "service.payment.compensate"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		pay, err := s.store.Payments().With(tx).Get(ctx, paymentID)
		if err != nil {
			return err
		}

		if err := s.store.Payments().With(tx).MarkFailed(ctx, paymentID, reason); err != nil {
			return err
		}

		res, seat, err := s.store.Reservations().With(tx).GetWithSeat(ctx, pay.ReservationID)
		if err != nil {
			return err
		}

		err = s.store.Reservations().With(tx).
			UpdateStatusIfExpected(ctx, res.ID, domain.ReservationFailed, domain.ReservationPending)
		if err != nil && !errors.Is(err, repository.ErrStaleState) {
			return err
		}

		err = s.store.Seats().With(tx).
			UpdateStatusIfExpected(ctx, seat.ID, domain.SeatAvailable, domain.SeatReserved)
		if err != nil && !errors.Is(err, repository.ErrStaleState) {
			return err
		}

		after(func(ctx context.Context) {
			s.pub.PaymentFailed(kafka.PaymentFailedEvent{
				PaymentID:     paymentID.String(),
				ReservationID: pay.ReservationID.String(),
				UserID:        pay.UserID,
				SeatID:        seat.ID,
				AmountCents:   pay.AmountCents,
				Reason:        reason,
			})
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Get returns a payment to its owner.
func (s *Service) Get(ctx context.Context, paymentID uuid.UUID, userID int64) (*domain.Payment, error) {
	const op = "service.payment.Get"

	pay, err := s.store.Payments().Get(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if pay.UserID != userID {
		return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
	}

	return pay, nil
}
