package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeoliero/uq/pkg/errcode"
)

func TestIssueAndParse(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	token, issued, err := s.Issue("u-1", 6)
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserId)
	assert.Equal(t, 6, claims.PlatformId)
	assert.Equal(t, issuer, claims.Issuer)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueDistinctSessionsInSameSecond(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	fixed := time.Unix(1700000000, 0)
	s.now = func() time.Time { return fixed }

	a, _, err := s.Issue("u-1", 6)
	require.NoError(t, err)
	b, _, err := s.Issue("u-1", 6)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewSigner("test-secret", time.Hour).Issue("u-1", 6)
	require.NoError(t, err)

	_, err = NewSigner("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, errcode.ErrTokenInvalid)

	_, err = NewSigner("test-secret", time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, errcode.ErrTokenInvalid)
}

func TestParseExpired(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	token, _, err := s.Issue("u-1", 6)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, errcode.ErrTokenExpired)
}

func TestParseFor(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	token, _, err := s.Issue("u-1", 6)
	require.NoError(t, err)

	_, err = s.ParseFor(token, "u-2", 6)
	assert.ErrorIs(t, err, errcode.ErrTokenMismatch)

	_, err = s.ParseFor(token, "u-1", 5)
	assert.ErrorIs(t, err, errcode.ErrTokenMismatch)

	claims, err := s.ParseFor(token, "u-1", 6)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserId)
}
