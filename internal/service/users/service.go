package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Service manages buyers and their prepaid balance.
type Service struct {
	store *postgresrepo.Store
}

func New(store *postgresrepo.Store) *Service {
	return &Service{store: store}
}

// Register creates a user with an optional starting balance.
func (s *Service) Register(ctx context.Context, balanceCents int64) (*domain.User, error) {
	const op = "service.users.Register"

	if balanceCents < 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidAmount)
	}

	u, err := s.store.Users().Create(ctx, balanceCents)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return u, nil
}

// Charge tops up the balance and returns the new total.
func (s *Service) Charge(ctx context.Context, userID, amountCents int64) (int64, error) {
	const op = "service.users.Charge"

	if amountCents <= 0 {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidAmount)
	}

	balance, err := s.store.Users().Charge(ctx, userID, amountCents)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrUserNotFound)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return balance, nil
}

// Balance returns the current balance.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	const op = "service.users.Balance"

	u, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrUserNotFound)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return u.BalanceCents, nil
}
