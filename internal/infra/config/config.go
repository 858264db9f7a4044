// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Webhook  WebhookConfig           `yaml:"webhook"`
	Storage  StorageConfig           `yaml:"storage"`
	Rewards  RewardsConfig           `yaml:"rewards"`
	Shuffle  ShuffleConfig           `yaml:"shuffle"`
	Admin    AdminConfig             `yaml:"admin"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// WebhookConfig represents the inbound webhook configuration.
type WebhookConfig struct {
	Secret string `yaml:"secret" validate:"required"`
	Path   string `yaml:"path" default:"/webhook/platform"`
}

// StorageConfig represents the key-value store configuration.
type StorageConfig struct {
	Path string `yaml:"path" default:"data/requestq"`
}

// RewardsConfig maps platform reward redemptions to queue actions.
type RewardsConfig struct {
	BumpRewardID       string `yaml:"bump_reward_id"`
	ShuffleRewardID    string `yaml:"shuffle_reward_id"`
	BumpsPerRedemption int    `yaml:"bumps_per_redemption" default:"1" validate:"gte=1"`
}

// ShuffleConfig represents the shuffle feature configuration.
type ShuffleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AdminConfig represents moderator-facing configuration.
type AdminConfig struct {
	Token        string   `yaml:"token" validate:"required"`
	ModeratorIDs []string `yaml:"moderator_ids"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages keyed by rejection code.
type MessagesConfig struct {
	Success               string `yaml:"success"`
	DefaultError          string `yaml:"default_error"`
	DuplicateSong         string `yaml:"duplicate_song"`
	SongNotFound          string `yaml:"song_not_found"`
	QueueEmpty            string `yaml:"queue_empty"`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded"`
	PendingLimit          string `yaml:"pending_limit"`
	BlockedUser           string `yaml:"blocked_user"`
	NoBumps               string `yaml:"no_bumps"`
	VideoNotFound         string `yaml:"video_not_found"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		c.Webhook.Secret = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// A shuffle reward without the feature enabled is a config mistake.
	if c.Rewards.ShuffleRewardID != "" && !c.Shuffle.Enabled {
		return errors.New("shuffle_reward_id is set but shuffle is not enabled")
	}

	return nil
}

// GetMessage returns the user-facing message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "duplicate_song":
		return c.Messages.DuplicateSong
	case "song_not_found":
		return c.Messages.SongNotFound
	case "queue_empty":
		return c.Messages.QueueEmpty
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	case "pending_limit":
		return c.Messages.PendingLimit
	case "blocked_user":
		return c.Messages.BlockedUser
	case "no_bumps":
		return c.Messages.NoBumps
	case "video_not_found":
		return c.Messages.VideoNotFound
	default:
		return c.Messages.DefaultError
	}
}

// IsModerator checks if the given user ID belongs to a moderator.
func (c *Config) IsModerator(userID string) bool {
	for _, id := range c.Admin.ModeratorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
