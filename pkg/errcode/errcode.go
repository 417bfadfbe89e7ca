package errcode

import (
	"errors"
	"fmt"
)

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// Is reports whether target carries the same code, so wrapped errors still match errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// From extracts a business error from err, falling back to ErrInternalServer.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternalServer.Wrap(err)
}

var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam    = New(1001, "invalid parameter")
	ErrInternalServer  = New(1002, "internal server error")
	ErrUnauthorized    = New(1003, "unauthorized")
	ErrForbidden       = New(1004, "forbidden")
	ErrNotFound        = New(1005, "not found")
	ErrTooManyRequests = New(1006, "too many requests")
	ErrNoPermission    = New(1007, "no permission to access this resource")

	// Auth errors (2xxx)
	ErrTokenInvalid     = New(2001, "token invalid")
	ErrTokenExpired     = New(2002, "token expired")
	ErrTokenMissing     = New(2003, "token missing")
	ErrTokenMismatch    = New(2004, "token user mismatch")
	ErrLoginFailed      = New(2005, "login failed")
	ErrUserNotFound     = New(2006, "user not found")
	ErrUserExists       = New(2007, "user already exists")
	ErrInvalidEmail     = New(2008, "invalid email address")
	ErrMagicLinkInvalid = New(2009, "magic link code invalid")
	ErrMagicLinkExpired = New(2010, "magic link code expired")

	// Contact and profile errors (3xxx)
	ErrContactExists   = New(3001, "already a contact")
	ErrCannotAddSelf   = New(3002, "cannot add yourself as a contact")
	ErrContactNotFound = New(3003, "contact not found")
	ErrInvalidStatus   = New(3004, "invalid status")
	ErrUqAllocFailed   = New(3005, "uq number allocation failed")

	// Message errors (4xxx)
	ErrMessageNotFound  = New(4001, "message not found")
	ErrMessageDuplicate = New(4002, "duplicate message")
	ErrSendFailed       = New(4005, "message send failed")
	ErrPullFailed       = New(4006, "message pull failed")
	ErrContentEmpty     = New(4007, "message content empty")
	ErrContentTooLong   = New(4008, "message content too long")
	ErrInvalidRecipient = New(4009, "invalid recipient")
	ErrMarkReadFailed   = New(4010, "mark read failed")

	// WebSocket errors (5xxx)
	ErrConnOverLimit   = New(5001, "connection over max limit")
	ErrConnClosed      = New(5002, "connection closed")
	ErrInvalidProtocol = New(5003, "invalid protocol")
	ErrPushFailed      = New(5004, "push message failed")

	// AI errors (6xxx)
	ErrAIDisabled = New(6001, "ai features disabled")
	ErrAIFailed   = New(6002, "ai request failed")
)
