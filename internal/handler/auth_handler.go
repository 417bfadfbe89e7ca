package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/uq/internal/middleware"
	"github.com/mbeoliero/uq/internal/service"
	"github.com/mbeoliero/uq/pkg/errcode"
	"github.com/mbeoliero/uq/pkg/response"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RequestMagicLink sends a login code to an email address
func (h *AuthHandler) RequestMagicLink(ctx context.Context, c *app.RequestContext) {
	var req service.MagicLinkRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.authService.RequestMagicLink(ctx, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// Verify exchanges a magic link code for a token, as a POST body or the link's query string
func (h *AuthHandler) Verify(ctx context.Context, c *app.RequestContext) {
	var req service.VerifyRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	resp, err := h.authService.VerifyMagicLink(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// Logout revokes the caller's session
func (h *AuthHandler) Logout(ctx context.Context, c *app.RequestContext) {
	token := middleware.GetToken(c)
	if token == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(ctx, token); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
