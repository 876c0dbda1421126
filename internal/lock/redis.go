package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Release only deletes the key while it still carries this holder's
// token, so a lease that expired and was re-acquired by another holder
// is never released from under them.
const luaRelease = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// release script.
type RedisLocker struct {
	rdb     *redis.Client
	release *redis.Script
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		rdb:     rdb,
		release: redis.NewScript(luaRelease),
	}
}

type redisLease struct {
	locker *RedisLocker
	key    string
	owner  string
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	const op = "lock.RedisLocker.Acquire"

	owner := randomOwner()

	ok, err := l.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !ok {
		return nil, ErrNotAcquired
	}

	return &redisLease{locker: l, key: key, owner: owner}, nil
}

func (le *redisLease) Release(ctx context.Context) error {
	const op = "lock.redisLease.Release"

	if err := le.locker.release.Run(ctx, le.locker.rdb, []string{le.key}, le.owner).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func randomOwner() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
