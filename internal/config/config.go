package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Antria configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// Channels
	Channels ChannelsConfig `json:"channels" mapstructure:"channels"`

	// Admin HTTP API
	Admin AdminConfig `json:"admin" mapstructure:"admin"`

	// Operator gateway
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Reply texts
	Replies RepliesConfig `json:"replies" mapstructure:"replies"`

	// Queue reminder
	Reminder ReminderConfig `json:"reminder" mapstructure:"reminder"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken  string   `json:"bot_token" mapstructure:"bot_token"`
	DMPolicy  string   `json:"dm_policy" mapstructure:"dm_policy"` // pairing, allowlist, open
	Allowlist []string `json:"allowlist" mapstructure:"allowlist"`
}

// ChannelsConfig holds channel enablement flags
type ChannelsConfig struct {
	Telegram ChannelConfig `json:"telegram" mapstructure:"telegram"`
	Gateway  ChannelConfig `json:"gateway" mapstructure:"gateway"`
}

// ChannelConfig represents a channel configuration
type ChannelConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// AdminConfig holds admin HTTP server configuration
type AdminConfig struct {
	Enabled           bool   `json:"enabled" mapstructure:"enabled"`
	Port              int    `json:"port" mapstructure:"port"`
	Host              string `json:"host" mapstructure:"host"`
	Timeout           int    `json:"timeout" mapstructure:"timeout"`                         // seconds
	RateLimitPerMin   int    `json:"rate_limit_per_min" mapstructure:"rate_limit_per_min"`   // per client IP
	ShutdownGraceSecs int    `json:"shutdown_grace_secs" mapstructure:"shutdown_grace_secs"` // drain window
}

// GatewayConfig holds operator gateway server configuration
type GatewayConfig struct {
	Port         int    `json:"port" mapstructure:"port"`
	Host         string `json:"host" mapstructure:"host"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// RepliesConfig holds reply text configuration
type RepliesConfig struct {
	File           string `json:"file" mapstructure:"file"`                             // optional JSON file with reply texts
	HotReload      bool   `json:"hot_reload" mapstructure:"hot_reload"`                 // watch the file for edits
	ReloadDebounce int    `json:"reload_debounce_ms" mapstructure:"reload_debounce_ms"` // milliseconds
}

// ReminderConfig holds queue reminder configuration
type ReminderConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // cron expression
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			DMPolicy: "open",
		},
		Channels: ChannelsConfig{
			Telegram: ChannelConfig{Enabled: true},
			Gateway:  ChannelConfig{Enabled: true},
		},
		Admin: AdminConfig{
			Enabled:           true,
			Port:              3000,
			Host:              "0.0.0.0",
			Timeout:           30,
			RateLimitPerMin:   120,
			ShutdownGraceSecs: 10,
		},
		Gateway: GatewayConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			SharedSecret: "",
		},
		Replies: RepliesConfig{
			HotReload:      true,
			ReloadDebounce: 300,
		},
		Reminder: ReminderConfig{
			Enabled:  false,
			Schedule: "*/15 * * * *",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Channels.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required when Telegram channel is enabled")
		}
		switch c.Telegram.DMPolicy {
		case "", "pairing", "allowlist", "open":
		default:
			return fmt.Errorf("invalid telegram DM policy: %s", c.Telegram.DMPolicy)
		}
	}

	if c.Channels.Gateway.Enabled {
		if c.Gateway.SharedSecret == "" {
			return fmt.Errorf("gateway shared secret is required when the gateway channel is enabled")
		}
		if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
			return fmt.Errorf("invalid gateway port: %d", c.Gateway.Port)
		}
	}

	if c.Admin.Enabled {
		if c.Admin.Port <= 0 || c.Admin.Port > 65535 {
			return fmt.Errorf("invalid admin port: %d", c.Admin.Port)
		}
	}

	if c.Reminder.Enabled && c.Reminder.Schedule == "" {
		return fmt.Errorf("reminder schedule is required when the reminder is enabled")
	}

	return nil
}
