package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/mbeoliero/uq/pkg/errcode"
	"github.com/mbeoliero/uq/pkg/jwt"
	"github.com/mbeoliero/uq/pkg/response"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "

	claimsKey = "uq.claims"
	tokenKey  = "uq.token"
)

// TokenValidator checks a bearer token, including its server-side session state
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

func bearerToken(c *app.RequestContext) (string, *errcode.Error) {
	header := string(c.GetHeader(AuthorizationHeader))
	if header == "" {
		return "", errcode.ErrTokenMissing
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || token == "" {
		return "", errcode.ErrTokenInvalid
	}
	return token, nil
}

// JWTAuth rejects requests without a valid bearer token and stores the caller's claims
func JWTAuth(validator TokenValidator) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		token, e := bearerToken(c)
		if e != nil {
			response.ErrorWithCode(ctx, c, e)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(ctx, token)
		if err != nil {
			if !errors.As(err, &e) {
				e = errcode.ErrTokenInvalid
			}
			response.ErrorWithCode(ctx, c, e)
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Set(tokenKey, token)
		c.Next(ctx)
	}
}

// Claims returns the caller set by JWTAuth, nil on unauthenticated routes
func Claims(c *app.RequestContext) *jwt.Claims {
	if v, ok := c.Get(claimsKey); ok {
		return v.(*jwt.Claims)
	}
	return nil
}

func GetUserId(c *app.RequestContext) string {
	if claims := Claims(c); claims != nil {
		return claims.UserId
	}
	return ""
}

func GetPlatformId(c *app.RequestContext) int {
	if claims := Claims(c); claims != nil {
		return claims.PlatformId
	}
	return 0
}

func GetToken(c *app.RequestContext) string {
	return c.GetString(tokenKey)
}
