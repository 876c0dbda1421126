package admission

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stagepass/stagepass/internal/domain"
)

type fakeLister struct {
	concerts []domain.Concert
	err      error
}

func (f *fakeLister) ListOpen(context.Context, time.Time) ([]domain.Concert, error) {
	return f.concerts, f.err
}

type fakeSweeper struct {
	calls    []int64
	failFor  map[int64]error
	promoted int
}

func (f *fakeSweeper) Sweep(_ context.Context, concertID int64) (int, error) {
	f.calls = append(f.calls, concertID)
	if err := f.failFor[concertID]; err != nil {
		return 0, err
	}
	return f.promoted, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSweeperTickCoversAllOpenConcerts(t *testing.T) {
	lister := &fakeLister{concerts: []domain.Concert{{ID: 1}, {ID: 2}, {ID: 3}}}
	svc := &fakeSweeper{promoted: 2}

	s := NewSweeper(lister, svc, time.Second, discardLogger())
	s.tick(context.Background())

	assert.Equal(t, []int64{1, 2, 3}, svc.calls)
}

func TestSweeperOneConcertFailingDoesNotStarveOthers(t *testing.T) {
	lister := &fakeLister{concerts: []domain.Concert{{ID: 1}, {ID: 2}, {ID: 3}}}
	svc := &fakeSweeper{failFor: map[int64]error{2: errors.New("redis down")}}

	s := NewSweeper(lister, svc, time.Second, discardLogger())
	s.tick(context.Background())

	assert.Equal(t, []int64{1, 2, 3}, svc.calls)
}

func TestSweeperListFailureSkipsTick(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	svc := &fakeSweeper{}

	s := NewSweeper(lister, svc, time.Second, discardLogger())
	s.tick(context.Background())

	assert.Empty(t, svc.calls)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	lister := &fakeLister{}
	s := NewSweeper(lister, &fakeSweeper{}, time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
