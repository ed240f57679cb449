package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/danang/antria/internal/metrics"
	"github.com/danang/antria/internal/tracing"
	"github.com/danang/antria/pkg/channels"
	"github.com/danang/antria/pkg/pairing"
)

// DM policies
const (
	PolicyPairing   = "pairing"
	PolicyAllowlist = "allowlist"
	PolicyOpen      = "open"
)

// Handler normalizes Telegram updates into inbound messages and applies
// the DM policy before dispatching into the conversation engine.
type Handler struct {
	selfID  int64
	policy  string
	pairing *pairing.Manager
	send    func(chatID int64, text string) error
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	dispatch channels.DispatchFunc
}

// NewHandler creates a new message handler bound to a bot
func NewHandler(bot *Bot, pairingManager *pairing.Manager) *Handler {
	policy := bot.config.DMPolicy
	if policy == "" {
		policy = PolicyOpen
	}
	return &Handler{
		selfID:  bot.api.Self.ID,
		policy:  policy,
		pairing: pairingManager,
		send:    bot.sendToChat,
		metrics: bot.metrics,
		logger:  bot.logger.With().Str("module", "handler").Logger(),
	}
}

// SetDispatch sets the dispatch function used for inbound messages
func (h *Handler) SetDispatch(dispatch channels.DispatchFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatch = dispatch
}

// HandleUpdate processes one incoming update
func (h *Handler) HandleUpdate(update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := Normalize(update, h.selfID)

	h.logger.Debug().
		Str("sender_id", msg.SenderID).
		Bool("from_self", msg.FromSelf).
		Msg("Message received")

	if msg.FromSelf {
		return nil
	}

	if allowed, err := h.checkPolicy(update.Message.Chat.ID, msg.SenderID); err != nil || !allowed {
		return err
	}

	h.mu.RLock()
	dispatch := h.dispatch
	h.mu.RUnlock()
	if dispatch == nil {
		return fmt.Errorf("dispatch function is not configured")
	}

	ctx := tracing.NewInboundContext(context.Background(), ChannelName, msg.SenderID)
	_, err := dispatch(ctx, msg)
	return err
}

// checkPolicy applies the DM policy. Unpaired senders under the pairing
// policy get a one-time code prompt instead of reaching the engine.
func (h *Handler) checkPolicy(chatID int64, senderID string) (bool, error) {
	switch h.policy {
	case PolicyOpen:
		return true, nil

	case PolicyAllowlist:
		if h.pairing != nil && h.pairing.IsAllowed(senderID) {
			return true, nil
		}
		h.logger.Debug().Str("sender_id", senderID).Msg("Sender not allowlisted, ignoring")
		return false, nil

	case PolicyPairing:
		if h.pairing == nil {
			return false, fmt.Errorf("pairing manager is not configured")
		}
		if h.pairing.IsAllowed(senderID) {
			return true, nil
		}
		request, created, err := h.pairing.EnsurePending(senderID)
		if err != nil {
			if err == pairing.ErrPendingLimitReached {
				h.logger.Warn().Str("sender_id", senderID).Msg("Pairing pending limit reached, ignoring")
				return false, nil
			}
			return false, err
		}
		if created {
			prompt := fmt.Sprintf("Pairing required. Share this code with an operator: %s", request.Code)
			if err := h.send(chatID, prompt); err != nil {
				return false, err
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown DM policy: %s", h.policy)
	}
}

// Normalize converts a Telegram update to the canonical inbound payload.
// The sender ID is the decimal chat ID so replies can address the same
// conversation directly.
func Normalize(update tgbotapi.Update, selfID int64) channels.InboundMessage {
	msg := update.Message

	displayName := ""
	fromSelf := false
	if msg.From != nil {
		fromSelf = msg.From.ID == selfID
		displayName = msg.From.UserName
		if displayName == "" {
			displayName = msg.From.FirstName
		}
	}

	return channels.InboundMessage{
		Channel:     ChannelName,
		SenderID:    strconv.FormatInt(msg.Chat.ID, 10),
		DisplayName: displayName,
		Text:        msg.Text,
		FromSelf:    fromSelf,
		Metadata: map[string]interface{}{
			"message_id": msg.MessageID,
		},
	}
}
