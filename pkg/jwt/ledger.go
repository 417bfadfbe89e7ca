package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbeoliero/uq/pkg/constant"
)

// SessionState is what the ledger knows about a token id
type SessionState string

const (
	SessionUnknown  SessionState = ""
	SessionActive   SessionState = "active"
	SessionReplaced SessionState = "replaced" // a newer sign-in on the same platform took over
	SessionRevoked  SessionState = "revoked"  // signed out
)

// Ledger records the sessions of each user and platform as a redis hash of token id to state.
// Signing in on a platform replaces every other active session there.
type Ledger struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLedger(rdb *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{rdb: rdb, ttl: ttl}
}

func (l *Ledger) key(userId string, platformId int) string {
	return fmt.Sprintf(constant.RedisKeyToken(), userId, platformId)
}

// Open activates the session of claims and returns how many sessions it replaced
func (l *Ledger) Open(ctx context.Context, claims *Claims) (int, error) {
	key := l.key(claims.UserId, claims.PlatformId)

	var replaced int
	err := l.rdb.Watch(ctx, func(tx *redis.Tx) error {
		sessions, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}

		replaced = 0
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for id, state := range sessions {
				if id != claims.ID && SessionState(state) == SessionActive {
					pipe.HSet(ctx, key, id, string(SessionReplaced))
					replaced++
				}
			}
			pipe.HSet(ctx, key, claims.ID, string(SessionActive))
			pipe.Expire(ctx, key, l.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return 0, fmt.Errorf("open session: %w", err)
	}
	return replaced, nil
}

// State looks up the session of claims
func (l *Ledger) State(ctx context.Context, claims *Claims) (SessionState, error) {
	state, err := l.rdb.HGet(ctx, l.key(claims.UserId, claims.PlatformId), claims.ID).Result()
	if errors.Is(err, redis.Nil) {
		return SessionUnknown, nil
	}
	if err != nil {
		return SessionUnknown, fmt.Errorf("session state: %w", err)
	}
	return SessionState(state), nil
}

// Revoke signs the session of claims out; unknown sessions are left alone
func (l *Ledger) Revoke(ctx context.Context, claims *Claims) error {
	key := l.key(claims.UserId, claims.PlatformId)
	ok, err := l.rdb.HExists(ctx, key, claims.ID).Result()
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !ok {
		return nil
	}
	if err := l.rdb.HSet(ctx, key, claims.ID, string(SessionRevoked)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
