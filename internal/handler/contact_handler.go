package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/uq/internal/middleware"
	"github.com/mbeoliero/uq/internal/service"
	"github.com/mbeoliero/uq/pkg/errcode"
	"github.com/mbeoliero/uq/pkg/response"
)

// ContactHandler handles contact list requests
type ContactHandler struct {
	contactService *service.ContactService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// AddContact adds a contact by UQ number
func (h *ContactHandler) AddContact(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.AddContactRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	info, err := h.contactService.AddContact(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// ListContacts lists the caller's contacts
func (h *ContactHandler) ListContacts(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	onlineOnly := c.Query("online_only") == "true" || c.Query("online_only") == "1"
	contacts, err := h.contactService.ListContacts(ctx, userId, onlineOnly)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, contacts)
}

// RemoveContactRequest represents remove contact request
type RemoveContactRequest struct {
	ContactId string `json:"contact_id"`
}

// RemoveContact removes a contact
func (h *ContactHandler) RemoveContact(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req RemoveContactRequest
	if err := c.BindAndValidate(&req); err != nil || req.ContactId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.contactService.RemoveContact(ctx, userId, req.ContactId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
