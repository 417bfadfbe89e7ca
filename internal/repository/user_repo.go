package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UserRepo is the repository for user operations
type UserRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewUserRepo creates a new UserRepo
func NewUserRepo(db *gorm.DB, rdb *redis.Client) *UserRepo {
	return &UserRepo{db: db, rdb: rdb}
}

// Create creates a new user
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetById gets user by Id
func (r *UserRepo) GetById(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIds gets users by Ids
func (r *UserRepo) GetByIds(ctx context.Context, ids []string) ([]*entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*entity.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetByEmail returns nil, nil when no user has the email
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUqNumber gets user by UQ number
func (r *UserRepo) GetByUqNumber(ctx context.Context, uqNumber int64) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("uq_number = ?", uqNumber).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListRecent returns the newest users except excludeId, optionally filtered by
// a username substring or a uq number prefix
func (r *UserRepo) ListRecent(ctx context.Context, excludeId, query string, limit int) ([]*entity.User, error) {
	q := r.db.WithContext(ctx).Where("id <> ?", excludeId)
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + escapeLike(query) + "%"
		q = q.Where("username LIKE ? OR CAST(uq_number AS CHAR) LIKE ?", like, escapeLike(query)+"%")
	}

	var users []*entity.User
	err := q.Order("created_at DESC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Update updates user info
func (r *UserRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Updates(updates).Error
}

// Exists checks if user exists
func (r *UserRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkActive refreshes last_seen and brings an away user back online
func (r *UserRepo) MarkActive(ctx context.Context, id string, now int64) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_seen": now,
			"status": gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
				constant.StatusAway, constant.StatusOnline),
		}).Error
}

// MarkIdleAway moves online users whose last_seen is before cutoff to away
func (r *UserRepo) MarkIdleAway(ctx context.Context, cutoff int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("status = ? AND last_seen < ?", constant.StatusOnline, cutoff).
		Update("status", constant.StatusAway)
	return res.RowsAffected, res.Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
