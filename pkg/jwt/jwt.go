package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mbeoliero/uq/pkg/errcode"
)

const issuer = "uq-im"

// Claims identify one signed-in device. ID (jti) names the session in the ledger.
type Claims struct {
	UserId     string `json:"user_id"`
	PlatformId int    `json:"platform_id"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 access tokens
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for userId on platformId and returns it with its claims
func (s *Signer) Issue(userId string, platformId int) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserId:     userId,
		PlatformId: platformId,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userId,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Parse verifies the signature, issuer and expiry of token
func (s *Signer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errcode.ErrTokenExpired
	case err != nil:
		return nil, errcode.ErrTokenInvalid.Wrap(err)
	case claims.UserId == "" || claims.ID == "":
		return nil, errcode.ErrTokenInvalid
	}
	return claims, nil
}

// ParseFor is Parse plus a check that the token belongs to userId on platformId
func (s *Signer) ParseFor(token, userId string, platformId int) (*Claims, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.UserId != userId || claims.PlatformId != platformId {
		return nil, errcode.ErrTokenMismatch
	}
	return claims, nil
}
