package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/internal/repository"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/mbeoliero/uq/pkg/errcode"
	"gorm.io/gorm"
)

// UserService handles profile, presence and registry lookups
type UserService struct {
	userRepo *repository.UserRepo
}

// NewUserService creates a new UserService
func NewUserService(userRepo *repository.UserRepo) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (s *UserService) getUser(ctx context.Context, userId string) (*entity.User, error) {
	user, err := s.userRepo.GetById(ctx, userId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrUserNotFound
		}
		log.CtxError(ctx, "get user failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	return user, nil
}

// GetUserInfo returns the caller's own profile
func (s *UserService) GetUserInfo(ctx context.Context, userId string) (*entity.UserInfo, error) {
	user, err := s.getUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return user.ToUserInfo(), nil
}

// GetPublicInfo returns another user's profile
func (s *UserService) GetPublicInfo(ctx context.Context, userId string) (*entity.UserInfo, error) {
	user, err := s.getUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return user.ToPublicUserInfo(), nil
}

// GetByUqNumber looks a user up by UQ number
func (s *UserService) GetByUqNumber(ctx context.Context, uqNumber int64) (*entity.UserInfo, error) {
	user, err := s.userRepo.GetByUqNumber(ctx, uqNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrUserNotFound
		}
		log.CtxError(ctx, "get user by uq number failed: uq_number=%d, error=%v", uqNumber, err)
		return nil, errcode.ErrInternalServer
	}
	return user.ToPublicUserInfo(), nil
}

// UpdateUserRequest represents user update request; nil fields are left unchanged
type UpdateUserRequest struct {
	Username  *string  `json:"username,omitempty"`
	AvatarUrl *string  `json:"avatar_url,omitempty"`
	Bio       *string  `json:"bio,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// buildUpdates validates req and returns the column updates
func (req *UpdateUserRequest) buildUpdates() (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" || utf8.RuneCountInString(name) > 32 {
			return nil, errcode.ErrInvalidParam
		}
		updates["username"] = name
	}
	if req.AvatarUrl != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarUrl)
	}
	if req.Bio != nil {
		if utf8.RuneCountInString(*req.Bio) > 500 {
			return nil, errcode.ErrInvalidParam
		}
		updates["bio"] = *req.Bio
	}
	if req.Tags != nil {
		updates["tags"] = entity.EncodeTags(req.Tags)
	}
	return updates, nil
}

// UpdateUserInfo updates user info
func (s *UserService) UpdateUserInfo(ctx context.Context, userId string, req *UpdateUserRequest) (*entity.UserInfo, error) {
	updates, err := req.buildUpdates()
	if err != nil {
		return nil, err
	}

	if _, err := s.getUser(ctx, userId); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, userId, updates); err != nil {
			log.CtxError(ctx, "update user failed: %v", err)
			return nil, errcode.ErrInternalServer
		}
	}

	return s.GetUserInfo(ctx, userId)
}

// SetStatus changes the presence status chosen by the user
func (s *UserService) SetStatus(ctx context.Context, userId, status string) (*entity.UserInfo, error) {
	if !constant.IsValidStatus(status) {
		return nil, errcode.ErrInvalidStatus
	}
	if err := s.userRepo.Update(ctx, userId, map[string]interface{}{
		"status":    status,
		"last_seen": entity.NowUnixMilli(),
	}); err != nil {
		log.CtxError(ctx, "set status failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	log.CtxDebug(ctx, "status changed: user_id=%s, status=%s", userId, status)
	return s.GetUserInfo(ctx, userId)
}

// ListRegistry returns the newest users other than userId, optionally filtered
func (s *UserService) ListRegistry(ctx context.Context, userId, query string, limit int) ([]*entity.UserInfo, error) {
	if limit <= 0 || limit > constant.DefaultRegistrySize {
		limit = constant.DefaultRegistrySize
	}

	users, err := s.userRepo.ListRecent(ctx, userId, query, limit)
	if err != nil {
		log.CtxError(ctx, "list users failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	infos := make([]*entity.UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, user.ToPublicUserInfo())
	}
	return infos, nil
}

// MarkActive records activity for userId, called on connect and heartbeat
func (s *UserService) MarkActive(ctx context.Context, userId string) error {
	return s.userRepo.MarkActive(ctx, userId, entity.NowUnixMilli())
}
