package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torigoya/requestq/internal/domain/song"
)

func TestBlockedUserFilter_Check(t *testing.T) {
	f := NewBlockedUserFilter()
	require.NoError(t, f.ValidateConfig(map[string]any{
		"user_ids": []string{"banned1", "banned2"},
	}))

	result := f.Check(context.Background(), Request{Requester: song.Requester{ID: "banned1"}})
	assert.False(t, result.Accepted)
	assert.Equal(t, "blocked_user", result.Code)

	result = f.Check(context.Background(), Request{Requester: song.Requester{ID: "regular"}})
	assert.True(t, result.Accepted)
}

func TestBlockedUserFilter_EmptyConfigBlocksNobody(t *testing.T) {
	f := NewBlockedUserFilter()
	require.NoError(t, f.ValidateConfig(map[string]any{}))

	result := f.Check(context.Background(), Request{Requester: song.Requester{ID: "anyone"}})
	assert.True(t, result.Accepted)
}

func TestRegistry_KnowsBuiltinFilters(t *testing.T) {
	registered := GetRegistered()
	assert.Contains(t, registered, "duration_limit_filter")
	assert.Contains(t, registered, "blocked_user_filter")
}
