package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
)

// QueueReader provides read access to the live queue.
type QueueReader interface {
	CountByRequester(userID string) int
}

// PendingLimitConfig represents the configuration for PendingLimitFilter.
type PendingLimitConfig struct {
	MaxPending int `yaml:"max_pending" mapstructure:"max_pending" default:"1" validate:"gte=1"`
}

// PendingLimitFilter rejects requests from users who already have too
// many songs waiting in the queue.
type PendingLimitFilter struct {
	queue  QueueReader
	config *PendingLimitConfig
}

// NewPendingLimitFilter creates a new pending limit filter.
func NewPendingLimitFilter(queue QueueReader) *PendingLimitFilter {
	return &PendingLimitFilter{queue: queue}
}

func (f *PendingLimitFilter) Name() string {
	return "pending_limit_filter"
}

func (f *PendingLimitFilter) Description() string {
	return "Checks if the requester already has songs waiting to be played"
}

func (f *PendingLimitFilter) ReturnCodes() []string {
	return []string{"pending_limit"}
}

func (f *PendingLimitFilter) ValidateConfig(settings map[string]any) error {
	var config PendingLimitConfig

	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if config.MaxPending < 1 {
		return errors.New("max_pending must be at least 1")
	}

	f.config = &config
	return nil
}

func (f *PendingLimitFilter) AppliesTo(req Request) bool {
	// Moderators bypass pending limits
	return !req.FromModerator
}

func (f *PendingLimitFilter) Check(ctx context.Context, req Request) Result {
	maxPending := 1
	if f.config != nil {
		maxPending = f.config.MaxPending
	}

	if f.queue.CountByRequester(req.Requester.ID) >= maxPending {
		return Reject("pending_limit")
	}
	return Accept()
}
