package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: " Polling "}, Health: HealthConfig{Listen: " :8081 "}}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, ":8081", cfg.Health.Listen)
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]*Config{
		"nil":         nil,
		"no token":    {},
		"bad mode":    {Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
		"webhook url": {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		"webhook port": {
			Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook},
			Webhook:  WebhookConfig{URL: "https://x", Listen: "0.0.0.0"},
		},
		"poll timeout": {Telegram: TelegramConfig{Token: "t", LongPollTimeoutSeconds: -1}},
		"rate limit":   {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(cfg))
		})
	}
}

func TestNormalizeReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t", RunMode: "webhook"},
		Webhook:   WebhookConfig{Listen: "0.0.0.0"},
		RateLimit: RateLimitConfig{IntervalMS: -5},
	}
	err := Normalize(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.url, webhook.port")
	assert.Contains(t, err.Error(), "rate_limit.interval_ms")

	err = Normalize(&Config{Telegram: TelegramConfig{Token: "  "}})
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: from-yaml\nrate_limit:\n  exclude_updates: [\" Callback \"]\n"), 0o600))
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("HEALTH_LISTEN", ":9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, ":9090", cfg.Health.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}
