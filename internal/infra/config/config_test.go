package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
webhook:
  secret: s3cret
admin:
  token: admin-token
  moderator_ids:
    - "mod1"
rewards:
  bump_reward_id: reward-bump
filters:
  duration_limit_filter:
    enabled: true
    settings:
      max_seconds: 480
messages:
  duplicate_song: "That song is already queued."
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Webhook.Secret)
	assert.Equal(t, "admin-token", cfg.Admin.Token)
	assert.Equal(t, "reward-bump", cfg.Rewards.BumpRewardID)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/webhook/platform", cfg.Webhook.Path)
	assert.Equal(t, "data/requestq", cfg.Storage.Path)
	assert.Equal(t, 1, cfg.Rewards.BumpsPerRedemption)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "env-secret")
	t.Setenv("STORAGE_PATH", "/tmp/override")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Webhook.Secret)
	assert.Equal(t, "/tmp/override", cfg.Storage.Path)
}

func TestLoad_MissingSecretFails(t *testing.T) {
	_, err := Load(writeConfig(t, `
admin:
  token: admin-token
`))
	assert.Error(t, err)
}

func TestLoad_MissingAdminTokenFails(t *testing.T) {
	_, err := Load(writeConfig(t, `
webhook:
  secret: s3cret
`))
	assert.Error(t, err)
}

func TestLoad_ShuffleRewardRequiresShuffleEnabled(t *testing.T) {
	_, err := Load(writeConfig(t, `
webhook:
  secret: s3cret
admin:
  token: admin-token
rewards:
  shuffle_reward_id: reward-shuffle
shuffle:
  enabled: false
`))
	assert.Error(t, err)
}

func TestLoad_ShuffleRewardWithShuffleEnabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
webhook:
  secret: s3cret
admin:
  token: admin-token
rewards:
  shuffle_reward_id: reward-shuffle
shuffle:
  enabled: true
`))
	require.NoError(t, err)
	assert.True(t, cfg.Shuffle.Enabled)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_IsModerator(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.True(t, cfg.IsModerator("mod1"))
	assert.False(t, cfg.IsModerator("viewer"))
}

func TestConfig_FilterAccessors(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.True(t, cfg.IsFilterEnabled("duration_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("blocked_user_filter"))
	assert.Equal(t, 480, cfg.FilterSettings("duration_limit_filter")["max_seconds"])
	assert.Nil(t, cfg.FilterSettings("unknown"))
}

func TestConfig_GetMessage(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "That song is already queued.", cfg.GetMessage("duplicate_song"))
	assert.Equal(t, cfg.Messages.DefaultError, cfg.GetMessage("some_unknown_code"))
}
