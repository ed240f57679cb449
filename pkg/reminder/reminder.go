package reminder

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/danang/antria/internal/metrics"
	"github.com/danang/antria/pkg/conversation"
	"github.com/danang/antria/pkg/replies"
	"github.com/danang/antria/pkg/session"
)

// Reminder periodically nudges senders who are waiting in the queue.
// Reminders go straight out over the transport; they never touch the
// conversation flow, so a waiting session stays queued.
type Reminder struct {
	schedule  string
	store     session.Store
	transport conversation.Transport
	replies   replies.Provider
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	cron      *cron.Cron
	entryID   cron.EntryID
}

// Config holds reminder configuration
type Config struct {
	Schedule  string
	Store     session.Store
	Transport conversation.Transport
	Replies   replies.Provider
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// New creates a reminder job. The schedule uses standard five-field
// cron syntax.
func New(cfg Config) (*Reminder, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Replies == nil {
		return nil, fmt.Errorf("replies provider is required")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "*/15 * * * *"
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.Schedule, err)
	}

	return &Reminder{
		schedule:  cfg.Schedule,
		store:     cfg.Store,
		transport: cfg.Transport,
		replies:   cfg.Replies,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		cron:      cron.New(),
	}, nil
}

// Start schedules the reminder job
func (r *Reminder) Start() error {
	entryID, err := r.cron.AddFunc(r.schedule, r.Run)
	if err != nil {
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}
	r.entryID = entryID
	r.cron.Start()

	r.logger.Info().Str("schedule", r.schedule).Msg("Queue reminder started")
	return nil
}

// Stop stops the reminder job and waits for a running pass to finish
func (r *Reminder) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("Queue reminder stopped")
}

// Run sends the reminder text to every queued sender. A configuration
// with an empty reminder text disables the pass.
func (r *Reminder) Run() {
	text := r.replies.Current().QueueReminder
	if text == "" {
		return
	}

	reminded := 0
	for _, id := range r.store.ListIDs() {
		sess, ok := r.store.Get(id)
		if !ok || sess.State != session.StateQueued {
			continue
		}

		if err := r.transport.SendText(sess.SenderID, text); err != nil {
			r.logger.Warn().
				Err(err).
				Str("sender_id", sess.SenderID).
				Msg("Failed to send queue reminder")
			if r.metrics != nil {
				r.metrics.SendErrorsTotal.Inc()
			}
			continue
		}

		if r.metrics != nil {
			r.metrics.MessagesSentTotal.Inc()
		}
		reminded++
	}

	if reminded > 0 {
		r.logger.Info().Int("reminded", reminded).Msg("Queue reminder pass complete")
	}
}
