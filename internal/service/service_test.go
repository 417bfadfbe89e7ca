package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/mbeoliero/uq/pkg/errcode"
	"github.com/mbeoliero/uq/pkg/jwt"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeEmail(t *testing.T) {
	email, err := normalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	for _, bad := range []string{"", "not-an-email", "Alice <alice@example.com>"} {
		_, err := normalizeEmail(bad)
		assert.ErrorIs(t, err, errcode.ErrInvalidEmail, bad)
	}
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "alice", usernameFromEmail("alice@example.com"))
	assert.Len(t, usernameFromEmail(strings.Repeat("a", 40)+"@example.com"), 32)

	name := usernameFromEmail(strings.Repeat("é", 40) + "@example.com")
	assert.True(t, utf8.ValidString(name))
	assert.Equal(t, 32, utf8.RuneCountInString(name))
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestLogMailer(t *testing.T) {
	var m Mailer = LogMailer{}
	assert.NoError(t, m.SendMagicLink(context.Background(), "a@b.c", "123456", "http://x"))
}

func TestNormalizeContent(t *testing.T) {
	out, err := normalizeContent("  hi there \n")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)

	_, err = normalizeContent(" \t\n ")
	assert.ErrorIs(t, err, errcode.ErrContentEmpty)

	_, err = normalizeContent(strings.Repeat("字", constant.MaxContentRunes))
	assert.NoError(t, err)

	_, err = normalizeContent(strings.Repeat("字", constant.MaxContentRunes+1))
	assert.ErrorIs(t, err, errcode.ErrContentTooLong)
}

func TestResolveCreatedAt(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	assert.Equal(t, now.UnixMilli(), resolveCreatedAt(0, now))
	assert.Equal(t, now.UnixMilli()-1000, resolveCreatedAt(now.UnixMilli()-1000, now))
	assert.Equal(t, now.Add(4*time.Minute).UnixMilli(), resolveCreatedAt(now.Add(4*time.Minute).UnixMilli(), now))
	assert.Equal(t, now.UnixMilli(), resolveCreatedAt(now.Add(6*time.Minute).UnixMilli(), now))
	assert.Equal(t, now.UnixMilli(), resolveCreatedAt(now.Add(-time.Hour).UnixMilli(), now))
}

func TestClampPageLimit(t *testing.T) {
	assert.Equal(t, constant.DefaultPageLimit, clampPageLimit(0))
	assert.Equal(t, constant.DefaultPageLimit, clampPageLimit(-3))
	assert.Equal(t, 10, clampPageLimit(10))
	assert.Equal(t, constant.MaxPageLimit, clampPageLimit(10_000))
}

func TestUpdateUserRequestBuildUpdates(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		req := &UpdateUserRequest{Username: strPtr("  bob "), Tags: []string{"go", " go ", "im"}}
		updates, err := req.buildUpdates()
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"username": "bob",
			"tags":     `["go","im"]`,
		}, updates)
	})

	t.Run("empty request", func(t *testing.T) {
		updates, err := (&UpdateUserRequest{}).buildUpdates()
		require.NoError(t, err)
		assert.Empty(t, updates)
	})

	t.Run("blank username", func(t *testing.T) {
		_, err := (&UpdateUserRequest{Username: strPtr("  ")}).buildUpdates()
		assert.ErrorIs(t, err, errcode.ErrInvalidParam)
	})

	t.Run("bio too long", func(t *testing.T) {
		_, err := (&UpdateUserRequest{Bio: strPtr(strings.Repeat("x", 501))}).buildUpdates()
		assert.ErrorIs(t, err, errcode.ErrInvalidParam)
	})
}

func TestBuildContactList(t *testing.T) {
	contacts := []*entity.Contact{
		{Id: 1, UserId: "me", ContactId: "u-carol"},
		{Id: 2, UserId: "me", ContactId: "u-bob", Nickname: "Zed"},
		{Id: 3, UserId: "me", ContactId: "u-alice"},
		{Id: 4, UserId: "me", ContactId: "u-gone"},
	}
	users := map[string]*entity.User{
		"u-alice": {Id: "u-alice", Username: "alice", Status: constant.StatusOnline},
		"u-bob":   {Id: "u-bob", Username: "bob", Status: constant.StatusOnline},
		"u-carol": {Id: "u-carol", Username: "Carol", Status: constant.StatusInvisible},
	}

	all := buildContactList(contacts, users, false)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].DisplayName())
	assert.Equal(t, "Carol", all[1].DisplayName())
	assert.Equal(t, "Zed", all[2].DisplayName())
	assert.Equal(t, constant.StatusOffline, all[1].Contact.Status)

	online := buildContactList(contacts, users, true)
	require.Len(t, online, 2)
	assert.Equal(t, "u-alice", online[0].ContactId)
	assert.Equal(t, "u-bob", online[1].ContactId)
}

func TestTranscriptLines(t *testing.T) {
	// newest first, as returned by the repository
	messages := []*entity.Message{
		{SenderId: "u2", Content: "fine, you?"},
		{SenderId: "u1", Content: "how are you"},
		{SenderId: "u3", Content: "hi"},
	}
	users := map[string]*entity.User{
		"u1": {Id: "u1", Username: "alice"},
		"u2": {Id: "u2", Username: "bob"},
	}
	assert.Equal(t, []string{
		"u3: hi",
		"alice: how are you",
		"bob: fine, you?",
	}, transcriptLines(messages, users))
}

func TestErrcodeSentinelsMatch(t *testing.T) {
	wrapped := errcode.ErrSendFailed.Wrap(errors.New("db down"))
	assert.True(t, errcode.ErrSendFailed.Is(wrapped))
	assert.Equal(t, errcode.ErrSendFailed.Code, errcode.From(wrapped).Code)
}

func TestTargetLanguageDefaultsToEnglish(t *testing.T) {
	assert.Equal(t, constant.DefaultTranslateLanguage, targetLanguage(""))
	assert.Equal(t, "en", targetLanguage("   "))
	assert.Equal(t, "fr", targetLanguage(" fr "))
}

// counterRedis keeps the attempt counter in memory
type counterRedis struct {
	redis.Cmdable
	counts  map[string]int64
	ttls    map[string]time.Duration
	deleted []string
	incrErr error
}

func newCounterRedis() *counterRedis {
	return &counterRedis{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (r *counterRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	if r.incrErr != nil {
		return redis.NewIntResult(0, r.incrErr)
	}
	r.counts[key]++
	return redis.NewIntResult(r.counts[key], nil)
}

func (r *counterRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	r.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (r *counterRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(r.counts, k)
		r.deleted = append(r.deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestWrongCodeBurnsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	rdb := newCounterRedis()
	s := &AuthService{attempts: &codeAttempts{rdb: rdb, max: 3, ttl: 15 * time.Minute}}
	email := "alice@example.com"
	codeKey := fmt.Sprintf(constant.RedisKeyMagicCode(), email)
	attemptsKey := fmt.Sprintf(constant.RedisKeyMagicAttempts(), email)

	assert.ErrorIs(t, s.wrongCode(ctx, email), errcode.ErrMagicLinkInvalid)
	assert.Equal(t, 15*time.Minute, rdb.ttls[attemptsKey])
	assert.ErrorIs(t, s.wrongCode(ctx, email), errcode.ErrMagicLinkInvalid)
	assert.Empty(t, rdb.deleted)

	assert.ErrorIs(t, s.wrongCode(ctx, email), errcode.ErrTooManyRequests)
	assert.ElementsMatch(t, []string{codeKey, attemptsKey}, rdb.deleted)

	// a fresh code starts a fresh count
	require.NoError(t, s.attempts.reset(ctx, email))
	assert.ErrorIs(t, s.wrongCode(ctx, email), errcode.ErrMagicLinkInvalid)
}

func TestWrongCodeBurnsWhenCounterFails(t *testing.T) {
	ctx := context.Background()
	rdb := newCounterRedis()
	rdb.incrErr = errors.New("redis down")
	s := &AuthService{attempts: &codeAttempts{rdb: rdb, max: 5, ttl: time.Minute}}

	assert.ErrorIs(t, s.wrongCode(ctx, "bob@example.com"), errcode.ErrInternalServer)
	assert.Contains(t, rdb.deleted, fmt.Sprintf(constant.RedisKeyMagicCode(), "bob@example.com"))
}

type fakeStates struct {
	state jwt.SessionState
	err   error
}

func (f fakeStates) State(context.Context, *jwt.Claims) (jwt.SessionState, error) {
	return f.state, f.err
}

func TestSessionLedgerOutage(t *testing.T) {
	ctx := context.Background()
	signer := jwt.NewSigner("secret", time.Hour)
	token, _, err := signer.Issue("u1", 5)
	require.NoError(t, err)

	s := &AuthService{signer: signer, states: fakeStates{err: errors.New("redis down")}}

	// REST keeps working on the signature alone
	claims, err := s.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserId)

	// the websocket handshake does not
	_, err = s.ValidateTokenWithUser(ctx, token, "u1", 5)
	assert.ErrorIs(t, err, errcode.ErrInternalServer)

	s.states = fakeStates{state: jwt.SessionActive}
	_, err = s.ValidateTokenWithUser(ctx, token, "u1", 5)
	assert.NoError(t, err)

	s.states = fakeStates{state: jwt.SessionRevoked}
	_, err = s.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, errcode.ErrTokenInvalid)
}
