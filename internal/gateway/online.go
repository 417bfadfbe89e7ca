package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"github.com/mbeoliero/uq/pkg/constant"
)

// onlineStore publishes who holds a connection on any instance.
// Keys expire after ttl unless refreshed by heartbeats. A nil client disables it.
type onlineStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func onlineKey(userId string) string {
	return fmt.Sprintf(constant.RedisKeyOnline(), userId)
}

func (s *onlineStore) mark(ctx context.Context, userId string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, onlineKey(userId), time.Now().UnixMilli(), s.ttl).Err(); err != nil {
		log.CtxWarn(ctx, "mark online failed: user_id=%s, error=%v", userId, err)
	}
}

func (s *onlineStore) touch(ctx context.Context, userId string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Expire(ctx, onlineKey(userId), s.ttl).Err(); err != nil {
		log.CtxWarn(ctx, "refresh online failed: user_id=%s, error=%v", userId, err)
	}
}

func (s *onlineStore) clear(ctx context.Context, userId string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, onlineKey(userId)).Err(); err != nil {
		log.CtxWarn(ctx, "clear online failed: user_id=%s, error=%v", userId, err)
	}
}

func (s *onlineStore) exists(ctx context.Context, userId string) bool {
	if s.rdb == nil {
		return false
	}
	n, err := s.rdb.Exists(ctx, onlineKey(userId)).Result()
	return err == nil && n > 0
}
