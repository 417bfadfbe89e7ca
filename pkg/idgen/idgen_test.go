package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIdsSortAsStrings(t *testing.T) {
	gen, err := MessageIds(7)
	require.NoError(t, err)

	prev := ""
	for i := 0; i < 100; i++ {
		id, err := gen.Next()
		require.NoError(t, err)
		assert.Len(t, id, 20)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestUserIds(t *testing.T) {
	id, err := UserIds().Next()
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}
