package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	wrapped := ErrSendFailed.Wrap(errors.New("db down"))

	assert.Equal(t, ErrSendFailed.Code, wrapped.Code)
	assert.Equal(t, "message send failed: db down", wrapped.Msg)
	assert.Same(t, ErrSendFailed, ErrSendFailed.Wrap(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("send: %w", ErrContactExists.Wrap(errors.New("dup key")))

	assert.True(t, errors.Is(wrapped, ErrContactExists))
	assert.False(t, errors.Is(wrapped, ErrCannotAddSelf))
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))
	assert.Equal(t, ErrUserNotFound, From(fmt.Errorf("lookup: %w", ErrUserNotFound)))

	e := From(errors.New("boom"))
	assert.Equal(t, ErrInternalServer.Code, e.Code)
	assert.Contains(t, e.Msg, "boom")
}
