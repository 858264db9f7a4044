package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torigoya/requestq/internal/domain/song"
)

type stubQueueReader struct {
	counts map[string]int
}

func (s *stubQueueReader) CountByRequester(userID string) int {
	return s.counts[userID]
}

func TestPendingLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		pending  int
		accepted bool
	}{
		{
			name:     "no pending songs",
			settings: map[string]any{"max_pending": 1},
			pending:  0,
			accepted: true,
		},
		{
			name:     "at the limit",
			settings: map[string]any{"max_pending": 1},
			pending:  1,
			accepted: false,
		},
		{
			name:     "higher limit",
			settings: map[string]any{"max_pending": 3},
			pending:  2,
			accepted: true,
		},
		{
			name:     "default limit is one",
			settings: map[string]any{},
			pending:  1,
			accepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &stubQueueReader{counts: map[string]int{"user1": tt.pending}}
			f := NewPendingLimitFilter(reader)
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), Request{
				Requester: song.Requester{ID: "user1"},
			})
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "pending_limit", result.Code)
			}
		})
	}
}

func TestPendingLimitFilter_ModeratorBypass(t *testing.T) {
	f := NewPendingLimitFilter(&stubQueueReader{counts: map[string]int{"mod": 10}})
	assert.False(t, f.AppliesTo(Request{FromModerator: true}))
}
