package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UqRepo allocates UQ numbers from a redis counter backed by the users table
type UqRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewUqRepo creates a new UqRepo
func NewUqRepo(db *gorm.DB, rdb *redis.Client) *UqRepo {
	return &UqRepo{db: db, rdb: rdb}
}

// AllocUqNumber allocates the next UQ number using Redis INCR
func (r *UqRepo) AllocUqNumber(ctx context.Context) (int64, error) {
	n, err := r.rdb.Incr(ctx, constant.RedisKeyUqCounter()).Result()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// maxUqNumber returns the highest assigned number in MySQL
func (r *UqRepo) maxUqNumber(ctx context.Context) (int64, error) {
	var max *int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Select("MAX(uq_number)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// InitFromMySQL makes sure the redis counter is never behind the users table.
// Called on startup so a flushed redis does not hand out duplicate numbers.
func (r *UqRepo) InitFromMySQL(ctx context.Context) (int64, error) {
	floor, err := r.maxUqNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("load max uq number: %w", err)
	}
	if floor < constant.UqNumberBase-1 {
		floor = constant.UqNumberBase - 1
	}

	key := constant.RedisKeyUqCounter()
	current, err := r.rdb.Get(ctx, key).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	if current >= floor {
		return current, nil
	}

	if err := r.rdb.Set(ctx, key, floor, 0).Err(); err != nil {
		return 0, err
	}
	return floor, nil
}
