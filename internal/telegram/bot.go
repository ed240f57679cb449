package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/danang/antria/internal/config"
	"github.com/danang/antria/internal/logger"
	"github.com/danang/antria/internal/metrics"
	"github.com/danang/antria/pkg/channels"
)

// ChannelName is the ingress channel name for Telegram
const ChannelName = "telegram"

// Bot represents a Telegram bot instance. It implements channels.Channel
// for ingress and conversation.Transport for outbound delivery.
type Bot struct {
	api     *tgbotapi.BotAPI
	config  *config.TelegramConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
	handler *Handler

	// State
	running bool
	updates tgbotapi.UpdatesChannel
}

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, log *logger.Logger, m *metrics.Metrics) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	// Create bot API instance
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot := &Bot{
		api:     api,
		config:  cfg,
		metrics: m,
		logger:  log.GetZerolog().With().Str("component", "telegram").Logger(),
	}

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// Name returns the ingress channel name
func (b *Bot) Name() string {
	return ChannelName
}

// SetHandler sets the inbound message handler
func (b *Bot) SetHandler(handler *Handler) {
	b.handler = handler
}

// Start starts the bot and begins processing updates
func (b *Bot) Start(_ context.Context, dispatch channels.DispatchFunc) error {
	if b.running {
		return fmt.Errorf("bot is already running")
	}
	if b.handler == nil {
		return fmt.Errorf("message handler is not configured")
	}
	b.handler.SetDispatch(dispatch)

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.updates = updates
	b.running = true

	go b.processUpdates()

	b.logger.Info().Msg("Telegram bot started")

	return nil
}

// Stop stops the bot
func (b *Bot) Stop(_ context.Context) error {
	if !b.running {
		return fmt.Errorf("bot is not running")
	}

	b.logger.Info().Msg("Stopping Telegram bot")

	b.running = false
	b.api.StopReceivingUpdates()

	b.logger.Info().Msg("Telegram bot stopped")

	return nil
}

// processUpdates processes incoming updates
func (b *Bot) processUpdates() {
	for update := range b.updates {
		if !b.running {
			break
		}

		if err := b.handler.HandleUpdate(update); err != nil {
			b.logger.Error().
				Err(err).
				Int("update_id", update.UpdateID).
				Msg("Failed to handle update")
			if b.metrics != nil {
				b.metrics.SendErrorsTotal.Inc()
			}
		}
	}
}

// SendText sends a text message to a sender. The sender ID is the
// decimal chat ID.
func (b *Bot) SendText(senderID, text string) error {
	chatID, err := strconv.ParseInt(senderID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sender id %q: %w", senderID, err)
	}
	return b.sendToChat(chatID, text)
}

// sendToChat sends a text message to a chat ID
func (b *Bot) sendToChat(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	b.logger.Debug().
		Int64("chat_id", chatID).
		Msg("Message sent")

	return nil
}

// GetBotInfo returns bot information
func (b *Bot) GetBotInfo() map[string]interface{} {
	return map[string]interface{}{
		"username":  b.api.Self.UserName,
		"id":        b.api.Self.ID,
		"firstName": b.api.Self.FirstName,
		"running":   b.running,
	}
}

// GetAPI returns the underlying bot API
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// IsRunning returns whether the bot is running
func (b *Bot) IsRunning() bool {
	return b.running
}

// ValidateToken validates a bot token by attempting to authenticate
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("invalid bot token: %w", err)
	}

	if api.Self.UserName == "" {
		return fmt.Errorf("failed to get bot info")
	}

	return nil
}

// WaitForReady waits for the bot to be ready
func (b *Bot) WaitForReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if b.running {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("bot did not become ready within timeout")
}
