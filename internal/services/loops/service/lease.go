package service

import (
	"context"
	"fmt"
	"time"

	perr "murmur/internal/platform/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease makes sure only one replica runs a given loop cycle at a time
type Lease interface {
	// Acquire returns ok=false when another holder owns the lease. release
	// is non-nil only when ok is true
	Acquire(ctx context.Context, loop string) (release func(), ok bool, err error)
}

// releaseScript deletes the key only when it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease implements Lease with SET NX PX and a compare-and-delete release
type RedisLease struct {
	rds     redis.UniversalClient
	account string
	ttl     time.Duration
}

// NewRedisLease builds a lease; ttl should exceed the longest expected cycle
func NewRedisLease(rds redis.UniversalClient, account string, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLease{rds: rds, account: account, ttl: ttl}
}

// Key is the redis key guarding loop
func (l *RedisLease) Key(loop string) string {
	return fmt.Sprintf("murmur:lease:%s:%s", l.account, loop)
}

// Acquire implements Lease
func (l *RedisLease) Acquire(ctx context.Context, loop string) (func(), bool, error) {
	key, token := l.Key(loop), uuid.NewString()
	ok, err := l.rds.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, perr.Wrap(err, perr.ErrorCodeUnavailable, "lease: acquire")
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.rds, []string{key}, token).Err()
	}
	return release, true, nil
}
