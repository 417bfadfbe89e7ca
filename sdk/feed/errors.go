package feed

import "errors"

var (
	ErrNoConversation = errors.New("feed: no conversation open")
	ErrNoSession      = errors.New("feed: no session")
	ErrEmptyContent   = errors.New("feed: empty message")
	ErrItemNotFound   = errors.New("feed: no such failed item")
	// ErrSuperseded is returned when the conversation was switched or closed mid-call
	ErrSuperseded = errors.New("feed: conversation switched")
)
