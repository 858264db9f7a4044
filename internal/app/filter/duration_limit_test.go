package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torigoya/requestq/internal/domain/song"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		duration time.Duration
		accepted bool
	}{
		{
			name:     "within limits",
			settings: map[string]any{"min_seconds": 10, "max_seconds": 600},
			duration: 3 * time.Minute,
			accepted: true,
		},
		{
			name:     "too short",
			settings: map[string]any{"min_seconds": 10, "max_seconds": 600},
			duration: 5 * time.Second,
			accepted: false,
		},
		{
			name:     "too long",
			settings: map[string]any{"min_seconds": 10, "max_seconds": 600},
			duration: 11 * time.Minute,
			accepted: false,
		},
		{
			name:     "exactly at max",
			settings: map[string]any{"min_seconds": 10, "max_seconds": 600},
			duration: 600 * time.Second,
			accepted: true,
		},
		{
			name:     "exactly at min",
			settings: map[string]any{"min_seconds": 10, "max_seconds": 600},
			duration: 10 * time.Second,
			accepted: true,
		},
		{
			name:     "zero max means no upper limit",
			settings: map[string]any{"min_seconds": 10, "max_seconds": 0},
			duration: 2 * time.Hour,
			accepted: true,
		},
		{
			name:     "defaults applied when settings are empty",
			settings: map[string]any{},
			duration: 20 * time.Minute,
			accepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), Request{
				Requester: song.Requester{ID: "user1", Name: "alice"},
				Duration:  tt.duration,
			})
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			}
		})
	}
}

func TestDurationLimitFilter_ValidateConfigRejectsInvertedRange(t *testing.T) {
	f := NewDurationLimitFilter()
	err := f.ValidateConfig(map[string]any{"min_seconds": 300, "max_seconds": 60})
	assert.Error(t, err)
}

func TestDurationLimitFilter_NoConfigAcceptsAll(t *testing.T) {
	f := NewDurationLimitFilter()
	result := f.Check(context.Background(), Request{Duration: time.Hour})
	assert.True(t, result.Accepted)
}

func TestDurationLimitFilter_ModeratorBypass(t *testing.T) {
	f := NewDurationLimitFilter()
	require.NoError(t, f.ValidateConfig(map[string]any{"max_seconds": 60}))
	assert.False(t, f.AppliesTo(Request{FromModerator: true}))
	assert.True(t, f.AppliesTo(Request{FromModerator: false}))
}
