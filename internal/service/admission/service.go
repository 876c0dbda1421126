package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
)

type Config struct {
	// Ceiling on concurrently ACTIVE tokens per concert.
	MaxActive int64
	// How long an active token admits its holder.
	ActiveTTL time.Duration
}

// Service is the waiting-room gate in front of reservation and payment.
// Tokens are issued WAITING, promoted to ACTIVE in issue order up to the
// ceiling, and expire after the activity TTL.
type Service struct {
	store *postgresrepo.Store
	queue *redisrepo.QueueRepo
	cfg   Config
}

func New(store *postgresrepo.Store, queue *redisrepo.QueueRepo, cfg Config) *Service {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = 50
	}

	if cfg.ActiveTTL <= 0 {
		cfg.ActiveTTL = time.Minute
	}

	return &Service{
		store: store,
		queue: queue,
		cfg:   cfg,
	}
}

// IssueToken enqueues the user for the concert. Re-issuing while a
// previous token is still live returns that token unchanged, so
// retrying clients cannot multiply their queue presence.
func (s *Service) IssueToken(ctx context.Context, concertID, userID int64) (*domain.QueueToken, error) {
	const op = "service.admission.IssueToken"

	ok, err := s.store.Concerts().Exists(ctx, concertID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrConcertNotFound)
	}

	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	tok := domain.QueueToken{
		ID:        uuid.New(),
		UserID:    userID,
		ConcertID: concertID,
		Status:    domain.TokenWaiting,
		IssuedAt:  time.Now(),
	}

	id, err := s.queue.Issue(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// The issue script may have returned a pre-existing token; read it
	// back so status and position are live either way.
	return s.GetStatus(ctx, concertID, id)
}

// GetStatus returns the token with its current status and, while
// waiting, the 1-based position in the queue.
func (s *Service) GetStatus(ctx context.Context, concertID int64, tokenID uuid.UUID) (*domain.QueueToken, error) {
	const op = "service.admission.GetStatus"

	tok, err := s.queue.Get(ctx, concertID, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if tok.Stale(time.Now(), s.cfg.ActiveTTL) {
		tok.Status = domain.TokenExpired
	}

	return tok, nil
}

// Validate is the gate reservation and payment call before touching any
// seat. Only an ACTIVE, unexpired token passes.
func (s *Service) Validate(ctx context.Context, concertID int64, tokenID uuid.UUID) (*domain.QueueToken, error) {
	const op = "service.admission.Validate"

	tok, err := s.GetStatus(ctx, concertID, tokenID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotAdmitted)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !tok.Active() {
		return nil, fmt.Errorf("%s:%w", op, ErrNotAdmitted)
	}

	return tok, nil
}

// Complete removes the token, freeing its active slot for the next
// waiting holder. Called after a successful settlement.
func (s *Service) Complete(ctx context.Context, concertID int64, tokenID uuid.UUID) error {
	const op = "service.admission.Complete"

	if err := s.queue.Remove(ctx, concertID, tokenID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Stats reports the admission gate's occupancy for a concert: how many
// tokens hold an active slot and how many are waiting behind them.
func (s *Service) Stats(ctx context.Context, concertID int64) (active, waiting int64, err error) {
	const op = "service.admission.Stats"

	active, err = s.queue.ActiveCount(ctx, concertID)
	if err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	waiting, err = s.queue.WaitingCount(ctx, concertID)
	if err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	return active, waiting, nil
}

// Sweep expires stale active tokens for the concert and promotes
// waiting ones into the freed slots. Returns how many were promoted.
func (s *Service) Sweep(ctx context.Context, concertID int64) (int, error) {
	const op = "service.admission.Sweep"

	cutoff := time.Now().Add(-s.cfg.ActiveTTL)
	if _, err := s.queue.ExpireStaleActive(ctx, concertID, cutoff); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	promoted, err := s.queue.Promote(ctx, concertID, s.cfg.MaxActive)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return len(promoted), nil
}
