package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbeoliero/uq/pkg/constant"
)

// codeAttempts counts wrong magic codes per email within the life of a code
type codeAttempts struct {
	rdb redis.Cmdable
	max int64
	ttl time.Duration
}

func (a *codeAttempts) key(email string) string {
	return fmt.Sprintf(constant.RedisKeyMagicAttempts(), email)
}

// fail records a wrong code and reports whether the limit is reached
func (a *codeAttempts) fail(ctx context.Context, email string) (bool, error) {
	key := a.key(email)
	n, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := a.rdb.Expire(ctx, key, a.ttl).Err(); err != nil {
			return false, err
		}
	}
	return n >= a.max, nil
}

// burn drops the pending code together with its counter
func (a *codeAttempts) burn(ctx context.Context, email string) {
	a.rdb.Del(ctx, fmt.Sprintf(constant.RedisKeyMagicCode(), email), a.key(email))
}

func (a *codeAttempts) reset(ctx context.Context, email string) error {
	return a.rdb.Del(ctx, a.key(email)).Err()
}
