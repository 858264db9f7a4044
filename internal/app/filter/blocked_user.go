package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// BlockedUserConfig represents the configuration for BlockedUserFilter.
type BlockedUserConfig struct {
	UserIDs []string `yaml:"user_ids" mapstructure:"user_ids"`
}

// BlockedUserFilter rejects requests from blocked users.
type BlockedUserFilter struct {
	blocked map[string]struct{}
}

// NewBlockedUserFilter creates a new blocked user filter.
func NewBlockedUserFilter() *BlockedUserFilter {
	return &BlockedUserFilter{
		blocked: make(map[string]struct{}),
	}
}

func (f *BlockedUserFilter) Name() string {
	return "blocked_user_filter"
}

func (f *BlockedUserFilter) Description() string {
	return "Checks if the requester is blocked from requesting songs"
}

func (f *BlockedUserFilter) ReturnCodes() []string {
	return []string{"blocked_user"}
}

func (f *BlockedUserFilter) ValidateConfig(settings map[string]any) error {
	var config BlockedUserConfig

	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	f.blocked = make(map[string]struct{}, len(config.UserIDs))
	for _, id := range config.UserIDs {
		f.blocked[id] = struct{}{}
	}
	return nil
}

func (f *BlockedUserFilter) AppliesTo(req Request) bool {
	// Moderators cannot be blocked
	return !req.FromModerator
}

func (f *BlockedUserFilter) Check(ctx context.Context, req Request) Result {
	if _, ok := f.blocked[req.Requester.ID]; ok {
		return Reject("blocked_user")
	}
	return Accept()
}

func init() {
	Register("blocked_user_filter", func() Filter {
		return NewBlockedUserFilter()
	})
}
