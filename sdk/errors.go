package sdk

import (
	"errors"
	"fmt"
)

// Error represents an API error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %d, msg: %s", e.Code, e.Msg)
}

// Is matches errors carrying the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new error
func NewError(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// IsSuccess checks if the error code indicates success
func (e *Error) IsSuccess() bool {
	return e.Code == 0
}

// Common error codes
const (
	// Success
	CodeSuccess = 0

	// Common errors (1xxx)
	CodeInvalidParam    = 1001
	CodeInternalServer  = 1002
	CodeUnauthorized    = 1003
	CodeForbidden       = 1004
	CodeNotFound        = 1005
	CodeTooManyRequests = 1006
	CodeNoPermission    = 1007

	// Auth errors (2xxx)
	CodeTokenInvalid     = 2001
	CodeTokenExpired     = 2002
	CodeTokenMissing     = 2003
	CodeTokenMismatch    = 2004
	CodeLoginFailed      = 2005
	CodeUserNotFound     = 2006
	CodeUserExists       = 2007
	CodeInvalidEmail     = 2008
	CodeMagicLinkInvalid = 2009
	CodeMagicLinkExpired = 2010

	// Contact and profile errors (3xxx)
	CodeContactExists   = 3001
	CodeCannotAddSelf   = 3002
	CodeContactNotFound = 3003
	CodeInvalidStatus   = 3004
	CodeUqAllocFailed   = 3005

	// Message errors (4xxx)
	CodeMessageNotFound  = 4001
	CodeMessageDuplicate = 4002
	CodeSendFailed       = 4005
	CodePullFailed       = 4006
	CodeContentEmpty     = 4007
	CodeContentTooLong   = 4008
	CodeInvalidRecipient = 4009
	CodeMarkReadFailed   = 4010

	// WebSocket errors (5xxx)
	CodeConnOverLimit   = 5001
	CodeConnClosed      = 5002
	CodeInvalidProtocol = 5003
	CodePushFailed      = 5004

	// AI errors (6xxx)
	CodeAIDisabled = 6001
	CodeAIFailed   = 6002
)

// Predefined errors
var (
	ErrInvalidParam    = NewError(CodeInvalidParam, "invalid parameter")
	ErrInternalServer  = NewError(CodeInternalServer, "internal server error")
	ErrUnauthorized    = NewError(CodeUnauthorized, "unauthorized")
	ErrTooManyRequests = NewError(CodeTooManyRequests, "too many requests")
	ErrNoPermission    = NewError(CodeNoPermission, "no permission to access this resource")

	ErrTokenInvalid     = NewError(CodeTokenInvalid, "token invalid")
	ErrTokenExpired     = NewError(CodeTokenExpired, "token expired")
	ErrTokenMissing     = NewError(CodeTokenMissing, "token missing")
	ErrUserNotFound     = NewError(CodeUserNotFound, "user not found")
	ErrMagicLinkInvalid = NewError(CodeMagicLinkInvalid, "magic link code invalid")
	ErrMagicLinkExpired = NewError(CodeMagicLinkExpired, "magic link code expired")

	ErrContactExists = NewError(CodeContactExists, "already a contact")
	ErrCannotAddSelf = NewError(CodeCannotAddSelf, "cannot add yourself as a contact")

	ErrMessageNotFound  = NewError(CodeMessageNotFound, "message not found")
	ErrContentEmpty     = NewError(CodeContentEmpty, "message content empty")
	ErrInvalidRecipient = NewError(CodeInvalidRecipient, "invalid recipient")

	// ErrNoSession is returned when neither the context nor the client carries a session
	ErrNoSession = errors.New("sdk: no session")
	// ErrKicked ends a subscription when the server signs this connection out
	ErrKicked = errors.New("sdk: connection kicked by server")
)
