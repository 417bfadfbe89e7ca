package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/internal/config"
	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/internal/repository"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/mbeoliero/uq/pkg/errcode"
	"github.com/mbeoliero/uq/pkg/idgen"
	"github.com/mbeoliero/uq/pkg/jwt"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers magic link codes
type Mailer interface {
	SendMagicLink(ctx context.Context, email, code, link string) error
}

// LogMailer writes magic links to the server log, used when no mail transport is configured
type LogMailer struct{}

func (LogMailer) SendMagicLink(ctx context.Context, email, code, link string) error {
	log.CtxInfo(ctx, "magic link issued: email=%s, code=%s, link=%s", email, code, link)
	return nil
}

// AuthService handles magic link login and token lifecycle
type AuthService struct {
	userRepo   *repository.UserRepo
	uqRepo     *repository.UqRepo
	rdb        *redis.Client
	cfg        *config.Config
	signer     *jwt.Signer
	sessions   *jwt.Ledger
	states     sessionStates
	attempts   *codeAttempts
	mailer     Mailer
	userIds    idgen.Generator
}

// NewAuthService creates a new AuthService
func NewAuthService(repos *repository.Repositories, cfg *config.Config, mailer Mailer) *AuthService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	tokenTTL := time.Duration(cfg.JWT.ExpireHours) * time.Hour
	sessions := jwt.NewLedger(repos.Redis, tokenTTL)
	return &AuthService{
		userRepo:   repos.User,
		uqRepo:     repos.Uq,
		rdb:        repos.Redis,
		cfg:        cfg,
		signer:     jwt.NewSigner(cfg.JWT.Secret, tokenTTL),
		sessions:   sessions,
		states:     sessions,
		attempts:   &codeAttempts{rdb: repos.Redis, max: int64(cfg.Auth.MaxVerifyAttempts), ttl: cfg.Auth.MagicLinkTTL},
		mailer:     mailer,
		userIds:    idgen.UserIds(),
	}
}

// sessionStates reads the ledger state behind a token
type sessionStates interface {
	State(ctx context.Context, claims *jwt.Claims) (jwt.SessionState, error)
}

// MagicLinkRequest asks for a login code to be sent to Email
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// VerifyRequest exchanges a code for a token
type VerifyRequest struct {
	Email      string `json:"email" query:"email"`
	Code       string `json:"code" query:"code"`
	PlatformId int    `json:"platform_id" query:"platform_id"`
}

// LoginResponse represents user login response
type LoginResponse struct {
	Token    string           `json:"token"`
	UserInfo *entity.UserInfo `json:"user_info"`
	IsNew    bool             `json:"is_new"`
}

// normalizeEmail lower-cases and validates an address
func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", errcode.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// usernameFromEmail derives the initial username from the local part
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if r := []rune(local); len(r) > 32 {
		local = string(r[:32])
	}
	return local
}

// generateCode returns a random 6 digit code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *AuthService) magicLink(email, code string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("code", code)
	return s.cfg.Auth.MagicLinkURL + "?" + q.Encode()
}

// RequestMagicLink issues a one-time code for email
func (s *AuthService) RequestMagicLink(ctx context.Context, req *MagicLinkRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}

	cooldownKey := fmt.Sprintf(constant.RedisKeyMagicCooldown(), email)
	ok, err := s.rdb.SetNX(ctx, cooldownKey, "1", s.cfg.Auth.MagicLinkCooldown).Result()
	if err != nil {
		log.CtxError(ctx, "magic link cooldown check failed: %v", err)
		return errcode.ErrInternalServer
	}
	if !ok {
		return errcode.ErrTooManyRequests
	}

	code, err := generateCode()
	if err != nil {
		log.CtxError(ctx, "generate magic code failed: %v", err)
		return errcode.ErrInternalServer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		log.CtxError(ctx, "hash magic code failed: %v", err)
		return errcode.ErrInternalServer
	}

	codeKey := fmt.Sprintf(constant.RedisKeyMagicCode(), email)
	if err := s.rdb.Set(ctx, codeKey, hash, s.cfg.Auth.MagicLinkTTL).Err(); err != nil {
		log.CtxError(ctx, "store magic code failed: %v", err)
		return errcode.ErrInternalServer
	}
	if err := s.attempts.reset(ctx, email); err != nil {
		log.CtxWarn(ctx, "reset verify attempts failed: email=%s, error=%v", email, err)
	}

	if err := s.mailer.SendMagicLink(ctx, email, code, s.magicLink(email, code)); err != nil {
		log.CtxError(ctx, "send magic link failed: email=%s, error=%v", email, err)
		s.rdb.Del(ctx, codeKey, cooldownKey)
		return errcode.ErrInternalServer
	}

	log.CtxInfo(ctx, "magic link requested: email=%s", email)
	return nil
}

// VerifyMagicLink checks the code, creates the account on first login and issues a token
func (s *AuthService) VerifyMagicLink(ctx context.Context, req *VerifyRequest) (*LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, errcode.ErrInvalidParam
	}

	codeKey := fmt.Sprintf(constant.RedisKeyMagicCode(), email)
	hash, err := s.rdb.Get(ctx, codeKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errcode.ErrMagicLinkExpired
	}
	if err != nil {
		log.CtxError(ctx, "load magic code failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(req.Code))); err != nil {
		return nil, s.wrongCode(ctx, email)
	}
	s.rdb.Del(ctx, codeKey)
	if err := s.attempts.reset(ctx, email); err != nil {
		log.CtxWarn(ctx, "reset verify attempts failed: email=%s, error=%v", email, err)
	}

	user, isNew, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}

	now := entity.NowUnixMilli()
	if err := s.userRepo.Update(ctx, user.Id, map[string]interface{}{
		"status":    constant.StatusOnline,
		"last_seen": now,
	}); err != nil {
		log.CtxWarn(ctx, "set online on login failed: user_id=%s, error=%v", user.Id, err)
	} else {
		user.Status = constant.StatusOnline
		user.LastSeen = now
	}

	token, claims, err := s.signer.Issue(user.Id, req.PlatformId)
	if err != nil {
		log.CtxError(ctx, "issue token failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	// one session per platform
	replaced, err := s.sessions.Open(ctx, claims)
	if err != nil {
		log.CtxError(ctx, "open session failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if replaced > 0 {
		log.CtxInfo(ctx, "replaced %d sessions: user_id=%s, platform_id=%d", replaced, user.Id, req.PlatformId)
	}

	log.CtxInfo(ctx, "user logged in: user_id=%s, uq_number=%d, platform_id=%d, new=%v",
		user.Id, user.UqNumber, req.PlatformId, isNew)
	return &LoginResponse{
		Token:    token,
		UserInfo: user.ToUserInfo(),
		IsNew:    isNew,
	}, nil
}

// wrongCode counts a failed verify; the code is deleted once too many guesses were made
func (s *AuthService) wrongCode(ctx context.Context, email string) error {
	exhausted, err := s.attempts.fail(ctx, email)
	if err != nil {
		// without a counter, guessing cannot be bounded
		log.CtxError(ctx, "count verify attempt failed: email=%s, error=%v", email, err)
		s.attempts.burn(ctx, email)
		return errcode.ErrInternalServer
	}
	if !exhausted {
		return errcode.ErrMagicLinkInvalid
	}
	s.attempts.burn(ctx, email)
	log.CtxWarn(ctx, "magic code burned after too many attempts: email=%s", email)
	return errcode.ErrTooManyRequests
}

func (s *AuthService) findOrCreateUser(ctx context.Context, email string) (*entity.User, bool, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.CtxError(ctx, "get user by email failed: %v", err)
		return nil, false, errcode.ErrInternalServer
	}
	if user != nil {
		return user, false, nil
	}

	userId, err := s.userIds.Next()
	if err != nil {
		log.CtxError(ctx, "generate user id failed: %v", err)
		return nil, false, errcode.ErrInternalServer
	}
	uqNumber, err := s.uqRepo.AllocUqNumber(ctx)
	if err != nil {
		log.CtxError(ctx, "alloc uq number failed: %v", err)
		return nil, false, errcode.ErrUqAllocFailed
	}

	user = &entity.User{
		Id:       userId,
		UqNumber: uqNumber,
		Email:    email,
		Username: usernameFromEmail(email),
		Status:   constant.StatusOnline,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// a concurrent verify for the same email may have won the unique index
		if existing, getErr := s.userRepo.GetByEmail(ctx, email); getErr == nil && existing != nil {
			return existing, false, nil
		}
		log.CtxError(ctx, "create user failed: %v", err)
		return nil, false, errcode.ErrInternalServer
	}

	log.CtxInfo(ctx, "user registered: user_id=%s, uq_number=%d", user.Id, user.UqNumber)
	return user, true, nil
}

// ValidateToken validates a token and returns claims
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	return s.checkSession(ctx, claims, false)
}

// ValidateTokenWithUser validates token and checks if user matches.
// It backs the websocket handshake, so an unreadable session ledger rejects the token.
func (s *AuthService) ValidateTokenWithUser(ctx context.Context, token, userId string, platformId int) (*jwt.Claims, error) {
	claims, err := s.signer.ParseFor(token, userId, platformId)
	if err != nil {
		return nil, err
	}
	return s.checkSession(ctx, claims, true)
}

// checkSession rejects replaced and revoked sessions; strict also rejects when the ledger is unreachable
func (s *AuthService) checkSession(ctx context.Context, claims *jwt.Claims, strict bool) (*jwt.Claims, error) {
	state, err := s.states.State(ctx, claims)
	if err != nil {
		if strict {
			log.CtxError(ctx, "check session failed, rejecting: user_id=%s, error=%v", claims.UserId, err)
			return nil, errcode.ErrInternalServer
		}
		// REST degrades to signature checks only
		log.CtxWarn(ctx, "check session failed: %v", err)
		return claims, nil
	}
	if state != jwt.SessionActive {
		log.CtxDebug(ctx, "session rejected: user_id=%s, platform_id=%d, state=%q", claims.UserId, claims.PlatformId, state)
		return nil, errcode.ErrTokenInvalid
	}
	return claims, nil
}

// Logout revokes the session behind token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		log.CtxError(ctx, "revoke session failed: %v", err)
		return errcode.ErrInternalServer
	}
	log.CtxInfo(ctx, "user logged out: user_id=%s, platform_id=%d", claims.UserId, claims.PlatformId)
	return nil
}
