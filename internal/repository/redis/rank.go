package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/stagepass/stagepass/internal/domain"
	redisx "github.com/stagepass/stagepass/internal/redis"
)

// Insert-if-better then trim-to-top-100 in one script so concurrent
// last-seat completions cannot interleave between the check and the
// update. Lower score (faster sell-out) ranks higher.
// KEYS[1] = leaderboard zset
// ARGV[1] = concert id, ARGV[2] = score
const luaUpdateRank = `
local key = KEYS[1]
local member = ARGV[1]
local new_score = tonumber(ARGV[2])

local current = redis.call('ZSCORE', key, member)
if not current or new_score < tonumber(current) then
  redis.call('ZADD', key, new_score, member)
end

redis.call('ZREMRANGEBYRANK', key, 100, -1)

local rank = redis.call('ZRANK', key, member)
if rank ~= false then
  return rank + 1
end
return 0
`

// RankRepo keeps the sold-out leaderboard: concerts scored by how fast
// they sold out, top 100 retained.
type RankRepo struct {
	rdb    *redis.Client
	update *redis.Script
}

func NewRankRepo(rdb *redis.Client) *RankRepo {
	return &RankRepo{
		rdb:    rdb,
		update: redis.NewScript(luaUpdateRank),
	}
}

// Update records scoreMillis for the concert if it beats the stored
// score and returns the resulting 1-based rank, or 0 when the concert
// fell outside the top 100.
func (r *RankRepo) Update(ctx context.Context, concertID int64, scoreMillis int64) (int64, error) {
	const op = "redis.RankRepo.Update"

	rank, err := r.update.Run(ctx, r.rdb,
		[]string{redisx.KeySoldOutRank()},
		strconv.FormatInt(concertID, 10),
		scoreMillis,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return rank, nil
}

// Top returns the best n entries, fastest sell-outs first.
func (r *RankRepo) Top(ctx context.Context, n int64) ([]domain.SoldOutRankEntry, error) {
	const op = "redis.RankRepo.Top"

	if n <= 0 {
		n = 100
	}

	zs, err := r.rdb.ZRangeWithScores(ctx, redisx.KeySoldOutRank(), 0, n-1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	entries := make([]domain.SoldOutRankEntry, 0, len(zs))
	for i, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, domain.SoldOutRankEntry{
			ConcertID:   id,
			ScoreMillis: int64(z.Score),
			Rank:        int64(i) + 1,
		})
	}

	return entries, nil
}
