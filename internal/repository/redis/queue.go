package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stagepass/stagepass/internal/domain"
	redisx "github.com/stagepass/stagepass/internal/redis"
	"github.com/stagepass/stagepass/internal/repository"
)

// Issues a token atomically and idempotently per (user, concert): if the
// dedup key already names a live token, that id is returned instead of
// creating a duplicate.
// KEYS[1] = dedup key, KEYS[2] = token info key, KEYS[3] = waiting zset
// ARGV[1] = token id, ARGV[2] = token json, ARGV[3] = ttl seconds,
// ARGV[4] = waiting score
const luaIssueToken = `
local existing = redis.call('GET', KEYS[1])
if existing then
  return existing
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', tonumber(ARGV[3]))
redis.call('SET', KEYS[2], ARGV[2], 'EX', tonumber(ARGV[3]))
redis.call('ZADD', KEYS[3], tonumber(ARGV[4]), ARGV[1])
return ARGV[1]
`

// Moves up to (max - active) of the oldest waiting tokens into the
// active set, scored by promotion time, and returns the moved ids.
// KEYS[1] = active zset, KEYS[2] = waiting zset
// ARGV[1] = max active
const luaPromote = `
local active = redis.call('ZCARD', KEYS[1])
local free = tonumber(ARGV[1]) - active
if free <= 0 then
  return {}
end
local waiting = redis.call('ZRANGE', KEYS[2], 0, free - 1)
if #waiting == 0 then
  return {}
end
local now = redis.call('TIME')
local score = tonumber(now[1])
for i, id in ipairs(waiting) do
  redis.call('ZADD', KEYS[1], score, id)
  redis.call('ZREM', KEYS[2], id)
end
return waiting
`

// Removes active tokens whose activation score is at or below the
// cutoff and returns them so the caller can drop their bookkeeping.
// KEYS[1] = active zset
// ARGV[1] = cutoff score
const luaExpireActive = `
local stale = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if #stale > 0 then
  redis.call('ZREM', KEYS[1], unpack(stale))
end
return stale
`

// How long an expired token's info stays readable after it loses its
// active slot, so a holder polling their status sees EXPIRED and can
// re-queue instead of getting a dangling 404.
const expiredGraceTTL = 5 * time.Minute

// QueueRepo stores admission tokens: a waiting zset and an active zset
// per concert plus a JSON info key and a per-user dedup key per token.
// A token's WAITING/ACTIVE/EXPIRED status is derived from set
// membership, so the promotion script is the single writer that flips
// state.
type QueueRepo struct {
	rdb        *redis.Client
	issue      *redis.Script
	promote    *redis.Script
	expire     *redis.Script
	waitingTTL time.Duration
}

func NewQueueRepo(rdb *redis.Client, waitingTTL time.Duration) *QueueRepo {
	return &QueueRepo{
		rdb:        rdb,
		issue:      redis.NewScript(luaIssueToken),
		promote:    redis.NewScript(luaPromote),
		expire:     redis.NewScript(luaExpireActive),
		waitingTTL: waitingTTL,
	}
}

// Issue stores tok as a waiting token, or returns the id of the token
// the user already holds for this concert.
func (r *QueueRepo) Issue(ctx context.Context, tok domain.QueueToken) (uuid.UUID, error) {
	const op = "redis.QueueRepo.Issue"

	payload, err := json.Marshal(tok)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, err)
	}

	keys := []string{
		redisx.KeyTokenByUser(tok.UserID, tok.ConcertID),
		redisx.KeyTokenInfo(tok.ID),
		redisx.KeyQueueWaiting(tok.ConcertID),
	}

	res, err := r.issue.Run(ctx, r.rdb, keys,
		tok.ID.String(),
		string(payload),
		int64(r.waitingTTL.Seconds()),
		tok.IssuedAt.UnixMilli(),
	).Text()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, err)
	}

	id, err := uuid.Parse(res)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// Get returns the token with its status and waiting position resolved
// from set membership.
func (r *QueueRepo) Get(ctx context.Context, concertID int64, tokenID uuid.UUID) (*domain.QueueToken, error) {
	const op = "redis.QueueRepo.Get"

	raw, err := r.rdb.Get(ctx, redisx.KeyTokenInfo(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var tok domain.QueueToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	activeScore, err := r.rdb.ZScore(ctx, redisx.KeyQueueActive(concertID), tokenID.String()).Result()
	switch {
	case err == nil:
		tok.Status = domain.TokenActive
		tok.Position = 0
		if tok.ActivatedAt.IsZero() {
			tok.ActivatedAt = time.Unix(int64(activeScore), 0)
		}
		return &tok, nil
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rank, err := r.rdb.ZRank(ctx, redisx.KeyQueueWaiting(concertID), tokenID.String()).Result()
	switch {
	case err == nil:
		tok.Status = domain.TokenWaiting
		tok.Position = rank + 1
		return &tok, nil
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// Info key still present but in neither set: expired.
	tok.Status = domain.TokenExpired
	tok.Position = 0
	return &tok, nil
}

// Promote fills free active slots with the oldest waiting tokens and
// returns the promoted ids. The ceiling is enforced inside the script,
// so concurrent sweeps never over-admit.
func (r *QueueRepo) Promote(ctx context.Context, concertID int64, maxActive int64) ([]uuid.UUID, error) {
	const op = "redis.QueueRepo.Promote"

	keys := []string{
		redisx.KeyQueueActive(concertID),
		redisx.KeyQueueWaiting(concertID),
	}

	res, err := r.promote.Run(ctx, r.rdb, keys, maxActive).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	promoted := make([]uuid.UUID, 0, len(res))
	now := time.Now()
	for _, s := range res {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		promoted = append(promoted, id)
		r.stampActivated(ctx, id, now)
	}

	return promoted, nil
}

// stampActivated records the activation time in the token info so the
// inactivity TTL is visible to status reads. Best effort: membership in
// the active set is authoritative.
func (r *QueueRepo) stampActivated(ctx context.Context, tokenID uuid.UUID, now time.Time) {
	key := redisx.KeyTokenInfo(tokenID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		return
	}

	var tok domain.QueueToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return
	}

	tok.Status = domain.TokenActive
	tok.ActivatedAt = now
	tok.Position = 0

	payload, err := json.Marshal(tok)
	if err != nil {
		return
	}

	_ = r.rdb.Set(ctx, key, string(payload), r.waitingTTL).Err()
}

// ExpireStaleActive removes active tokens promoted at or before cutoff
// and drops their bookkeeping so the holder can re-queue.
func (r *QueueRepo) ExpireStaleActive(ctx context.Context, concertID int64, cutoff time.Time) (int, error) {
	const op = "redis.QueueRepo.ExpireStaleActive"

	stale, err := r.expire.Run(ctx, r.rdb,
		[]string{redisx.KeyQueueActive(concertID)},
		cutoff.Unix(),
	).StringSlice()
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	for _, s := range stale {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		r.markExpired(ctx, concertID, id)
	}

	return len(stale), nil
}

// markExpired frees the per-user dedup slot immediately but keeps the
// token info around for a grace period, stamped EXPIRED.
func (r *QueueRepo) markExpired(ctx context.Context, concertID int64, tokenID uuid.UUID) {
	infoKey := redisx.KeyTokenInfo(tokenID)

	raw, err := r.rdb.Get(ctx, infoKey).Result()
	if err != nil {
		return
	}

	var tok domain.QueueToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return
	}

	_ = r.rdb.Del(ctx, redisx.KeyTokenByUser(tok.UserID, concertID)).Err()

	tok.Status = domain.TokenExpired
	tok.Position = 0

	payload, err := json.Marshal(tok)
	if err != nil {
		return
	}

	_ = r.rdb.Set(ctx, infoKey, string(payload), expiredGraceTTL).Err()
}

// Remove deletes a token outright, freeing its active slot. Used when
// the holder completes payment or abandons the queue.
func (r *QueueRepo) Remove(ctx context.Context, concertID int64, tokenID uuid.UUID) error {
	const op = "redis.QueueRepo.Remove"

	pipe := r.rdb.Pipeline()
	pipe.ZRem(ctx, redisx.KeyQueueActive(concertID), tokenID.String())
	pipe.ZRem(ctx, redisx.KeyQueueWaiting(concertID), tokenID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	r.dropToken(ctx, concertID, tokenID)
	return nil
}

func (r *QueueRepo) dropToken(ctx context.Context, concertID int64, tokenID uuid.UUID) {
	infoKey := redisx.KeyTokenInfo(tokenID)

	raw, err := r.rdb.Get(ctx, infoKey).Result()
	if err == nil {
		var tok domain.QueueToken
		if json.Unmarshal([]byte(raw), &tok) == nil {
			_ = r.rdb.Del(ctx, redisx.KeyTokenByUser(tok.UserID, concertID)).Err()
		}
	}

	_ = r.rdb.Del(ctx, infoKey).Err()
}

// ActiveCount reports how many tokens currently hold an admission slot.
func (r *QueueRepo) ActiveCount(ctx context.Context, concertID int64) (int64, error) {
	const op = "redis.QueueRepo.ActiveCount"

	n, err := r.rdb.ZCard(ctx, redisx.KeyQueueActive(concertID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}

// WaitingCount reports the queue length behind the admission gate.
func (r *QueueRepo) WaitingCount(ctx context.Context, concertID int64) (int64, error) {
	const op = "redis.QueueRepo.WaitingCount"

	n, err := r.rdb.ZCard(ctx, redisx.KeyQueueWaiting(concertID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}
