package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	postgres "github.com/stagepass/stagepass/internal/repository/postgres"
)

// AfterCommit runs only once the surrounding transaction has committed.
// Notifications and cache invalidation go through this so nothing is
// published for state that never became durable.
type AfterCommit func(ctx context.Context)

const maxAttempts = 3

// UoW scopes repositories to one transaction and collects after-commit
// hooks.
type UoW struct {
	store *postgres.Store
}

func New(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a transaction. After a successful commit it
// executes all registered after-commit hooks in order.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts is Do with explicit transaction options. Serialization
// failures and deadlocks are retried a couple of times before giving
// up; hooks registered by an aborted attempt are discarded.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		hooks = hooks[:0]

		err = u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil || !postgres.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
