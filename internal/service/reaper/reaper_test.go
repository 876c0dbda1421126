package reaper

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/stagepass/stagepass/internal/lock"
)

type fakeExpirer struct {
	ids     []uuid.UUID
	listErr error
	failFor map[uuid.UUID]error
	expired []uuid.UUID
}

func (f *fakeExpirer) ListExpired(context.Context, time.Time, int) ([]uuid.UUID, error) {
	return f.ids, f.listErr
}

func (f *fakeExpirer) ExpireOne(_ context.Context, id uuid.UUID, _ time.Time) error {
	if err := f.failFor[id]; err != nil {
		return err
	}
	f.expired = append(f.expired, id)
	return nil
}

type fakeLease struct{}

func (fakeLease) Release(context.Context) error { return nil }

type fakeLocker struct {
	held     bool
	acquired int
}

func (f *fakeLocker) Acquire(context.Context, string, time.Duration) (lock.Lease, error) {
	if f.held {
		return nil, lock.ErrNotAcquired
	}
	f.acquired++
	return fakeLease{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTickExpiresWholeBatch(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	exp := &fakeExpirer{ids: ids}
	locker := &fakeLocker{}

	w := NewWorker(exp, locker, discardLogger(), Config{})
	w.Tick(context.Background())

	assert.Equal(t, ids, exp.expired)
	assert.Equal(t, 1, locker.acquired)
}

func TestTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	exp := &fakeExpirer{ids: []uuid.UUID{uuid.New()}}
	locker := &fakeLocker{held: true}

	w := NewWorker(exp, locker, discardLogger(), Config{})
	w.Tick(context.Background())

	assert.Empty(t, exp.expired)
}

func TestTickOneBadRowDoesNotPoisonBatch(t *testing.T) {
	good1, bad, good2 := uuid.New(), uuid.New(), uuid.New()
	exp := &fakeExpirer{
		ids:     []uuid.UUID{good1, bad, good2},
		failFor: map[uuid.UUID]error{bad: errors.New("row deadlocked")},
	}

	w := NewWorker(exp, &fakeLocker{}, discardLogger(), Config{})
	w.Tick(context.Background())

	assert.Equal(t, []uuid.UUID{good1, good2}, exp.expired)
}

func TestTickListFailureReleasesLock(t *testing.T) {
	exp := &fakeExpirer{listErr: errors.New("db down")}
	locker := &fakeLocker{}

	w := NewWorker(exp, locker, discardLogger(), Config{})
	w.Tick(context.Background())

	assert.Empty(t, exp.expired)
	assert.Equal(t, 1, locker.acquired)
}

func TestRunStopsOnCancel(t *testing.T) {
	w := NewWorker(&fakeExpirer{}, &fakeLocker{}, discardLogger(), Config{Interval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
