package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
}

// NewWizard creates a new configuration wizard
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Println("=== Antria Configuration Wizard ===")
	fmt.Println()

	cfg := DefaultConfig()
	validator := NewValidator()

	// Telegram Configuration
	fmt.Println("Telegram Configuration:")
	fmt.Println()

	fmt.Print("Enable Telegram integration? (y/n) [y]: ")
	enable, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if enable == "" || strings.ToLower(enable) == "y" {
		cfg.Channels.Telegram.Enabled = true

		// Bot Token
		for {
			fmt.Print("Telegram Bot Token: ")
			token, err := w.readLine()
			if err != nil {
				return nil, err
			}

			if token == "" {
				fmt.Println("Error: Bot token is required when Telegram is enabled")
				continue
			}

			if err := validator.ValidateTelegramToken(token); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}

			cfg.Telegram.BotToken = token
			break
		}

		// DM Policy
		fmt.Println()
		fmt.Println("DM Policy options:")
		fmt.Println("  pairing   - Only paired users can DM")
		fmt.Println("  allowlist - Only users in allowlist can DM")
		fmt.Println("  open      - Anyone can DM (default)")
		fmt.Print("DM Policy [open]: ")
		policy, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if policy == "" {
			policy = "open"
		}

		if err := validator.ValidateDMPolicy(policy); err != nil {
			fmt.Printf("Warning: %v, using default (open)\n", err)
			policy = "open"
		}

		cfg.Telegram.DMPolicy = policy
	} else {
		cfg.Channels.Telegram.Enabled = false
	}

	fmt.Println()

	// Operator Gateway
	fmt.Println("Operator Gateway:")
	fmt.Print("Enable the operator gateway? (y/n) [y]: ")
	enable, err = w.readLine()
	if err != nil {
		return nil, err
	}

	if enable == "" || strings.ToLower(enable) == "y" {
		cfg.Channels.Gateway.Enabled = true

		for {
			fmt.Print("Gateway shared secret: ")
			secret, err := w.readLine()
			if err != nil {
				return nil, err
			}

			if secret == "" {
				fmt.Println("Error: Shared secret is required when the gateway is enabled")
				continue
			}

			cfg.Gateway.SharedSecret = secret
			break
		}

		fmt.Printf("Gateway port [%d]: ", cfg.Gateway.Port)
		port, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if port != "" {
			var p int
			if _, err := fmt.Sscanf(port, "%d", &p); err != nil || validator.ValidatePort(p) != nil {
				fmt.Printf("Warning: invalid port, using default (%d)\n", cfg.Gateway.Port)
			} else {
				cfg.Gateway.Port = p
			}
		}
	} else {
		cfg.Channels.Gateway.Enabled = false
	}

	fmt.Println()

	// Queue Reminder
	fmt.Println("Queue Reminder:")
	fmt.Print("Enable periodic reminders for queued senders? (y/n) [n]: ")
	enable, err = w.readLine()
	if err != nil {
		return nil, err
	}

	if strings.ToLower(enable) == "y" {
		cfg.Reminder.Enabled = true

		fmt.Printf("Reminder schedule (cron) [%s]: ", cfg.Reminder.Schedule)
		schedule, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if schedule != "" {
			if err := validator.ValidateCronSchedule(schedule); err != nil {
				fmt.Printf("Warning: %v, using default (%s)\n", err, cfg.Reminder.Schedule)
			} else {
				cfg.Reminder.Schedule = schedule
			}
		}
	}

	fmt.Println()

	// Log Level
	fmt.Println("Logging:")
	fmt.Print("Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Println()
	fmt.Println("Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
