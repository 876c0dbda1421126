package rank

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/kafka"
)

type fakeCounter struct {
	remaining int64
	err       error
}

func (f *fakeCounter) CountUnassignedForConcert(context.Context, int64) (int64, error) {
	return f.remaining, f.err
}

type fakeConcerts struct {
	concert *domain.Concert
	err     error
}

func (f *fakeConcerts) Get(context.Context, int64) (*domain.Concert, error) {
	return f.concert, f.err
}

type fakeRanker struct {
	scores   []int64
	failures int
	rank     int64
}

func (f *fakeRanker) Update(_ context.Context, _ int64, scoreMillis int64) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("redis timeout")
	}
	f.scores = append(f.scores, scoreMillis)
	return f.rank, nil
}

func (f *fakeRanker) Top(context.Context, int64) ([]domain.SoldOutRankEntry, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func event(concertID int64, paidAt time.Time) kafka.PaymentSuccessEvent {
	return kafka.PaymentSuccessEvent{
		PaymentID: "p1",
		ConcertID: concertID,
		PaidAt:    paidAt,
	}
}

func TestHandlerIgnoresPaymentsWhileSeatsRemain(t *testing.T) {
	ranker := &fakeRanker{}
	l := NewListener(&fakeCounter{remaining: 7}, &fakeConcerts{}, ranker, discardLogger())

	err := l.HandlePaymentSuccess(context.Background(), event(1, time.Now()))
	require.NoError(t, err)
	assert.Empty(t, ranker.scores)
}

func TestHandlerRecordsSellOutDuration(t *testing.T) {
	opened := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	paid := opened.Add(90 * time.Second)

	ranker := &fakeRanker{rank: 4}
	l := NewListener(
		&fakeCounter{remaining: 0},
		&fakeConcerts{concert: &domain.Concert{ID: 1, OpenedAt: opened}},
		ranker,
		discardLogger(),
	)

	err := l.HandlePaymentSuccess(context.Background(), event(1, paid))
	require.NoError(t, err)
	require.Len(t, ranker.scores, 1)
	assert.Equal(t, int64(90_000), ranker.scores[0])
}

func TestHandlerClampsNegativeScore(t *testing.T) {
	opened := time.Now()
	ranker := &fakeRanker{}
	l := NewListener(
		&fakeCounter{remaining: 0},
		&fakeConcerts{concert: &domain.Concert{ID: 1, OpenedAt: opened}},
		ranker,
		discardLogger(),
	)

	err := l.HandlePaymentSuccess(context.Background(), event(1, opened.Add(-time.Second)))
	require.NoError(t, err)
	require.Len(t, ranker.scores, 1)
	assert.Equal(t, int64(0), ranker.scores[0])
}

func TestHandlerRetriesThenSucceeds(t *testing.T) {
	ranker := &fakeRanker{failures: 2}
	l := NewListener(
		&fakeCounter{remaining: 0},
		&fakeConcerts{concert: &domain.Concert{ID: 1, OpenedAt: time.Now().Add(-time.Minute)}},
		ranker,
		discardLogger(),
	)

	err := l.HandlePaymentSuccess(context.Background(), event(1, time.Now()))
	require.NoError(t, err)
	assert.Len(t, ranker.scores, 1)
}

func TestHandlerDropsAfterExhaustedRetries(t *testing.T) {
	ranker := &fakeRanker{failures: updateAttempts}
	l := NewListener(
		&fakeCounter{remaining: 0},
		&fakeConcerts{concert: &domain.Concert{ID: 1, OpenedAt: time.Now().Add(-time.Minute)}},
		ranker,
		discardLogger(),
	)

	// Ranking is best effort: exhausted retries are logged, not
	// redelivered, so the handler reports success.
	err := l.HandlePaymentSuccess(context.Background(), event(1, time.Now()))
	require.NoError(t, err)
	assert.Empty(t, ranker.scores)
}

func TestHandlerPropagatesCountErrorForRedelivery(t *testing.T) {
	l := NewListener(&fakeCounter{err: errors.New("db down")}, &fakeConcerts{}, &fakeRanker{}, discardLogger())

	err := l.HandlePaymentSuccess(context.Background(), event(1, time.Now()))
	require.Error(t, err)
}
