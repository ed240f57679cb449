package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTelegramToken(t *testing.T) {
	v := NewValidator()

	t.Run("valid token", func(t *testing.T) {
		err := v.ValidateTelegramToken("123456789:ABCdefGHIjklMNOpqrsTUVwxyz")
		assert.NoError(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		err := v.ValidateTelegramToken("invalid-token")
		assert.Error(t, err)
	})

	t.Run("empty token", func(t *testing.T) {
		err := v.ValidateTelegramToken("")
		assert.Error(t, err)
	})
}

func TestValidateDMPolicy(t *testing.T) {
	v := NewValidator()

	t.Run("valid policies", func(t *testing.T) {
		for _, policy := range []string{"pairing", "allowlist", "open"} {
			assert.NoError(t, v.ValidateDMPolicy(policy))
		}
	})

	t.Run("empty uses default", func(t *testing.T) {
		assert.NoError(t, v.ValidateDMPolicy(""))
	})

	t.Run("invalid policy", func(t *testing.T) {
		assert.Error(t, v.ValidateDMPolicy("closed"))
	})
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			assert.NoError(t, v.ValidateLogLevel(level))
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		assert.Error(t, v.ValidateLogLevel("verbose"))
	})
}

func TestValidatePort(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidatePort(8080))
	assert.Error(t, v.ValidatePort(0))
	assert.Error(t, v.ValidatePort(-1))
	assert.Error(t, v.ValidatePort(70000))
}

func TestValidateCronSchedule(t *testing.T) {
	v := NewValidator()

	t.Run("valid schedule", func(t *testing.T) {
		assert.NoError(t, v.ValidateCronSchedule("*/15 * * * *"))
	})

	t.Run("empty schedule", func(t *testing.T) {
		assert.Error(t, v.ValidateCronSchedule(""))
	})

	t.Run("malformed schedule", func(t *testing.T) {
		assert.Error(t, v.ValidateCronSchedule("every 15 minutes"))
	})
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("default config with telegram disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Channels.Telegram.Enabled = false
		cfg.Gateway.SharedSecret = "secret"

		errs := v.ValidateConfig(cfg)
		assert.Empty(t, errs)
	})

	t.Run("gateway without secret", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Channels.Telegram.Enabled = false

		errs := v.ValidateConfig(cfg)
		assert.NotEmpty(t, errs)
	})

	t.Run("bad telegram token", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Telegram.BotToken = "not-a-token"
		cfg.Gateway.SharedSecret = "secret"

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 1)
	})

	t.Run("bad reminder schedule", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Channels.Telegram.Enabled = false
		cfg.Gateway.SharedSecret = "secret"
		cfg.Reminder.Enabled = true
		cfg.Reminder.Schedule = "bogus"

		errs := v.ValidateConfig(cfg)
		assert.NotEmpty(t, errs)
	})
}
