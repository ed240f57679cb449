package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/danang/antria/internal/metrics"
	"github.com/danang/antria/internal/tracing"
	"github.com/danang/antria/pkg/channels"
	"github.com/danang/antria/pkg/commandqueue"
	"github.com/danang/antria/pkg/replies"
	"github.com/danang/antria/pkg/session"
)

// Transport delivers outbound text to a sender on the messaging channel.
type Transport interface {
	SendText(senderID, text string) error
}

// TransitionEvent is emitted after a session changes state.
type TransitionEvent struct {
	SenderID string        `json:"sender_id"`
	From     session.State `json:"from"`
	To       session.State `json:"to"`
	Outbound string        `json:"outbound,omitempty"`
}

// Listener receives transition events. Listeners must not block.
type Listener func(TransitionEvent)

// Result reports what one inbound message did to a session.
type Result struct {
	SenderID string
	From     session.State
	To       session.State
	Outbound string
	Sent     bool
}

// Config wires the engine's collaborators.
type Config struct {
	Store     session.Store
	Transport Transport
	Replies   replies.Provider
	Queue     *commandqueue.CommandQueue
	Archiver  *session.Archiver
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// Engine drives the per-sender conversation state machine. All handling
// for one sender runs on that sender's queue lane, so a sender's
// messages are applied strictly in arrival order.
type Engine struct {
	store     session.Store
	transport Transport
	replies   replies.Provider
	queue     *commandqueue.CommandQueue
	archiver  *session.Archiver
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	listenerMu sync.RWMutex
	listeners  []Listener
}

// New creates a conversation engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Replies == nil {
		return nil, fmt.Errorf("replies provider is required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("command queue is required")
	}

	return &Engine{
		store:     cfg.Store,
		transport: cfg.Transport,
		replies:   cfg.Replies,
		queue:     cfg.Queue,
		archiver:  cfg.Archiver,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("component", "conversation").Logger(),
	}, nil
}

// OnTransition registers a listener for state changes.
func (e *Engine) OnTransition(fn Listener) {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// HandleInbound applies one inbound message to its sender's session.
// It blocks until the sender's lane has processed the message and is
// total over the input space: every text in every state resolves to a
// valid next state.
func (e *Engine) HandleInbound(ctx context.Context, msg channels.InboundMessage) (*Result, error) {
	if msg.FromSelf {
		return nil, nil
	}
	if msg.SenderID == "" {
		return nil, fmt.Errorf("sender id is required")
	}

	if tracing.GetSenderID(ctx) == "" {
		ctx = tracing.WithSenderID(ctx, msg.SenderID)
	}

	if e.metrics != nil {
		e.metrics.MessagesReceivedTotal.WithLabelValues(msg.Channel).Inc()
	}

	value, err := e.queue.EnqueueWithContext(ctx, msg.SenderID, func(taskCtx context.Context) (interface{}, error) {
		return e.process(taskCtx, msg), nil
	})
	if err != nil {
		return nil, err
	}

	result, ok := value.(*Result)
	if !ok {
		return nil, fmt.Errorf("unexpected task result type %T", value)
	}
	return result, nil
}

// process runs on the sender's lane. One invocation per message,
// strictly ordered per sender.
func (e *Engine) process(ctx context.Context, msg channels.InboundMessage) *Result {
	logger := tracing.LoggerFromContext(ctx, e.logger)

	_, existed := e.store.Get(msg.SenderID)
	sess := e.store.GetOrCreate(msg.SenderID)
	if !existed && e.metrics != nil {
		e.metrics.SessionsTotal.Inc()
	}
	if msg.DisplayName != "" {
		sess.DisplayName = msg.DisplayName
	}

	from := sess.State
	decision := Transition(from, msg.Text, e.replies.Current())

	switch decision.Effect {
	case LogReset:
		sess.Log = []string{decision.Outbound}
	case LogAppend:
		sess.Log = append(sess.Log, decision.Outbound)
	case LogClear:
		e.archive(sess, logger)
		sess.Log = []string{}
	}
	sess.State = decision.Next

	result := &Result{
		SenderID: msg.SenderID,
		From:     from,
		To:       decision.Next,
		Outbound: decision.Outbound,
	}

	// Outbound delivery is fire-and-forget: a send failure is logged
	// and counted but never blocks the state write.
	if decision.Outbound != "" {
		if err := e.transport.SendText(msg.SenderID, decision.Outbound); err != nil {
			logger.Error().Err(err).Str("state", decision.Next.String()).Msg("Outbound send failed")
			if e.metrics != nil {
				e.metrics.SendErrorsTotal.Inc()
			}
		} else {
			result.Sent = true
			if e.metrics != nil {
				e.metrics.MessagesSentTotal.Inc()
			}
		}
	}

	e.store.Put(msg.SenderID, sess)

	if e.metrics != nil {
		e.metrics.RecordTransition(from.String(), decision.Next.String())
	}

	if from != decision.Next {
		logger.Info().
			Str("from", from.String()).
			Str("to", decision.Next.String()).
			Msg("Session transitioned")
		e.emit(TransitionEvent{
			SenderID: msg.SenderID,
			From:     from,
			To:       decision.Next,
			Outbound: decision.Outbound,
		})
	}

	return result
}

// archive hands the finished episode log to the archiver before reset.
func (e *Engine) archive(sess *session.Session, logger zerolog.Logger) {
	if e.archiver == nil || len(sess.Log) == 0 {
		return
	}
	if err := e.archiver.Archive(sess.SenderID, sess.Log); err != nil {
		logger.Warn().Err(err).Msg("Episode archive failed")
		return
	}
	if e.metrics != nil {
		e.metrics.EpisodesArchivedTotal.Inc()
	}
}

func (e *Engine) emit(event TransitionEvent) {
	e.listenerMu.RLock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}
