package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/stagepass/internal/domain"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
)

// These tests need a real Redis because the queue semantics live in Lua
// scripts. Set REDIS_TEST_ADDR to run them.
func testClient(t *testing.T) *goredis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}

func newToken(userID, concertID int64) domain.QueueToken {
	return domain.QueueToken{
		ID:        uuid.New(),
		UserID:    userID,
		ConcertID: concertID,
		Status:    domain.TokenWaiting,
		IssuedAt:  time.Now(),
	}
}

func TestQueueIssueIsIdempotentPerUser(t *testing.T) {
	client := testClient(t)
	repo := redisrepo.NewQueueRepo(client, time.Hour)
	ctx := context.Background()

	first := newToken(7, 1)
	id1, err := repo.Issue(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id1)

	// Re-issuing for the same user returns the original token id.
	id2, err := repo.Issue(ctx, newToken(7, 1))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	n, err := repo.WaitingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestQueuePromoteRespectsCeilingAndOrder(t *testing.T) {
	client := testClient(t)
	repo := redisrepo.NewQueueRepo(client, time.Hour)
	ctx := context.Background()

	var issued []uuid.UUID
	for i := int64(1); i <= 5; i++ {
		tok := newToken(i, 1)
		tok.IssuedAt = time.Now().Add(time.Duration(i) * time.Millisecond)
		id, err := repo.Issue(ctx, tok)
		require.NoError(t, err)
		issued = append(issued, id)
	}

	promoted, err := repo.Promote(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, issued[:3], promoted)

	// The ceiling is already full, a second sweep moves nobody.
	again, err := repo.Promote(ctx, 1, 3)
	require.NoError(t, err)
	assert.Empty(t, again)

	active, err := repo.ActiveCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), active)

	// Position is 1-based among the remaining waiters.
	tok, err := repo.Get(ctx, 1, issued[3])
	require.NoError(t, err)
	assert.Equal(t, domain.TokenWaiting, tok.Status)
	assert.Equal(t, int64(1), tok.Position)
}

func TestQueueRemoveFreesSlotForNextWaiter(t *testing.T) {
	client := testClient(t)
	repo := redisrepo.NewQueueRepo(client, time.Hour)
	ctx := context.Background()

	a, err := repo.Issue(ctx, newToken(1, 1))
	require.NoError(t, err)
	b, err := repo.Issue(ctx, newToken(2, 1))
	require.NoError(t, err)

	promoted, err := repo.Promote(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{a}, promoted)

	require.NoError(t, repo.Remove(ctx, 1, a))

	promoted, err = repo.Promote(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, promoted)
}

func TestQueueExpiredTokenStaysVisible(t *testing.T) {
	client := testClient(t)
	repo := redisrepo.NewQueueRepo(client, time.Hour)
	ctx := context.Background()

	id, err := repo.Issue(ctx, newToken(7, 1))
	require.NoError(t, err)

	promoted, err := repo.Promote(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id}, promoted)

	n, err := repo.ExpireStaleActive(ctx, 1, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The holder polling their status must see EXPIRED, not a 404, so
	// they know to re-queue.
	tok, err := repo.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenExpired, tok.Status)

	// And re-queuing gets a fresh token, not the dead one back.
	fresh, err := repo.Issue(ctx, newToken(7, 1))
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
}

func TestRankInsertIfBetter(t *testing.T) {
	client := testClient(t)
	repo := redisrepo.NewRankRepo(client)
	ctx := context.Background()

	rank, err := repo.Update(ctx, 42, 90_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank)

	// A slower time for the same concert must not overwrite.
	_, err = repo.Update(ctx, 42, 120_000)
	require.NoError(t, err)

	top, err := repo.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(90_000), top[0].ScoreMillis)

	// A faster time does.
	_, err = repo.Update(ctx, 42, 60_000)
	require.NoError(t, err)

	top, err = repo.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(60_000), top[0].ScoreMillis)
}
