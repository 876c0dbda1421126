package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLease struct {
	released *bool
}

func (l recordingLease) Release(context.Context) error {
	*l.released = true
	return nil
}

type stubLocker struct {
	err      error
	released bool
}

func (s *stubLocker) Acquire(context.Context, string, time.Duration) (Lease, error) {
	if s.err != nil {
		return nil, s.err
	}
	return recordingLease{released: &s.released}, nil
}

func TestWithLockRunsAndReleases(t *testing.T) {
	l := &stubLocker{}
	ran := false

	err := WithLock(context.Background(), l, "k", time.Second, func(context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, l.released)
}

func TestWithLockReleasesOnFnError(t *testing.T) {
	l := &stubLocker{}
	boom := errors.New("boom")

	err := WithLock(context.Background(), l, "k", time.Second, func(context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, l.released)
}

func TestWithLockPropagatesNotAcquired(t *testing.T) {
	l := &stubLocker{err: ErrNotAcquired}

	err := WithLock(context.Background(), l, "k", time.Second, func(context.Context) error {
		t.Fatal("fn must not run without the lease")
		return nil
	})

	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestWithLockReleasesEvenWhenCallerCtxCancelled(t *testing.T) {
	l := &stubLocker{}
	ctx, cancel := context.WithCancel(context.Background())

	err := WithLock(ctx, l, "k", time.Second, func(context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, l.released)
}
