package feed

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPageSize is the number of messages per history page
const DefaultPageSize = 50

// Option configures a Manager
type Option func(*Manager)

// WithPageSize sets the history page size, non-positive values keep the default
func WithPageSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithChime sets the chime played for pushed messages from the partner
func WithChime(c Chime) Option {
	return func(m *Manager) {
		m.chime = c
	}
}

// WithOnChange registers a callback receiving a snapshot after every state change.
// It runs without the manager lock held and may call back into the manager.
func WithOnChange(fn func(State)) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// WithClock overrides the clock used to stamp outgoing messages
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLocalIdGenerator overrides how provisional ids are chosen
func WithLocalIdGenerator(gen func() string) Option {
	return func(m *Manager) {
		m.newLocalId = gen
	}
}

func defaultLocalId() string {
	return uuid.New().String()
}
