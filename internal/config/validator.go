package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}

	// Telegram bot tokens have format: <bot_id>:<token>
	// Example: 123456789:ABCdefGHIjklMNOpqrsTUVwxyz
	pattern := regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
	if !pattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidateDMPolicy validates Telegram DM policy
func (v *Validator) ValidateDMPolicy(policy string) error {
	if policy == "" {
		return nil // Use default
	}

	validPolicies := []string{"pairing", "allowlist", "open"}
	for _, valid := range validPolicies {
		if policy == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid DM policy: %s (must be one of: %s)", policy, strings.Join(validPolicies, ", "))
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a TCP port number
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", port)
	}
	return nil
}

// ValidateCronSchedule validates a standard 5-field cron expression
func (v *Validator) ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	// Validate Telegram
	if cfg.Channels.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		if err := v.ValidateTelegramToken(cfg.Telegram.BotToken); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateDMPolicy(cfg.Telegram.DMPolicy); err != nil {
		errors = append(errors, err)
	}

	// Validate gateway
	if cfg.Channels.Gateway.Enabled {
		if err := v.ValidatePort(cfg.Gateway.Port); err != nil {
			errors = append(errors, fmt.Errorf("gateway: %w", err))
		}
		if strings.TrimSpace(cfg.Gateway.SharedSecret) == "" {
			errors = append(errors, fmt.Errorf("gateway shared secret is required when the gateway channel is enabled"))
		}
	}

	// Validate admin API
	if cfg.Admin.Enabled {
		if err := v.ValidatePort(cfg.Admin.Port); err != nil {
			errors = append(errors, fmt.Errorf("admin: %w", err))
		}
		if cfg.Admin.RateLimitPerMin < 0 {
			errors = append(errors, fmt.Errorf("admin rate_limit_per_min must be >= 0"))
		}
	}

	// Validate reminder
	if cfg.Reminder.Enabled {
		if err := v.ValidateCronSchedule(cfg.Reminder.Schedule); err != nil {
			errors = append(errors, err)
		}
	}

	if cfg.Replies.ReloadDebounce < 0 {
		errors = append(errors, fmt.Errorf("replies reload_debounce_ms must be >= 0"))
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
