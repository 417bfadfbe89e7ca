package gateway

import "errors"

var (
	ErrConnClosed      = errors.New("connection closed")
	ErrSendQueueFull   = errors.New("send queue full")
	ErrInvalidProtocol = errors.New("invalid protocol")
	ErrUserIdMismatch  = errors.New("user id mismatch")
)
