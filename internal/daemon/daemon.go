package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/danang/antria/internal/admin"
	"github.com/danang/antria/internal/config"
	"github.com/danang/antria/internal/logger"
	"github.com/danang/antria/internal/metrics"
	"github.com/danang/antria/internal/telegram"
	"github.com/danang/antria/internal/tracing"
	"github.com/danang/antria/pkg/channels"
	"github.com/danang/antria/pkg/commandqueue"
	"github.com/danang/antria/pkg/conversation"
	"github.com/danang/antria/pkg/gateway"
	"github.com/danang/antria/pkg/pairing"
	"github.com/danang/antria/pkg/reminder"
	"github.com/danang/antria/pkg/replies"
	"github.com/danang/antria/pkg/session"
)

// Daemon represents the Antria daemon service
type Daemon struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	// Core modules
	queue     *commandqueue.CommandQueue
	store     session.Store
	archiver  *session.Archiver
	replies   replies.Provider
	engine    *conversation.Engine
	transport conversation.Transport

	// Services
	gatewayServer   *gateway.Server
	adminServer     *admin.Server
	reminderJob     *reminder.Reminder
	channelRegistry *channels.Registry

	// Telegram
	telegramBot     *telegram.Bot
	telegramPairing *pairing.Manager

	// Internal
	repliesLoader *replies.Loader
	eventLoop     *EventLoop
	lifecycle     *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Status describes the running state of the daemon
type Status struct {
	Running   bool
	StartTime time.Time
	Uptime    time.Duration
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:  cfg,
		logger:  log,
		metrics: metrics.NewMetrics(),
		ctx:     ctx,
		cancel:  cancel,
	}

	// Initialize core modules in dependency order
	if err := d.initializeCoreModules(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	// Initialize services
	if err := d.initializeServices(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Create internal components
	d.eventLoop = NewEventLoop(d)
	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeCoreModules initializes all core modules
func (d *Daemon) initializeCoreModules() error {
	d.queue = commandqueue.New()
	d.logger.Info().Msg("Command queue initialized")

	d.store = session.NewMemoryStore(d.logger.GetZerolog())
	d.logger.Info().Msg("Session store initialized")

	archiveDir := filepath.Join(d.config.DataDir, "episodes")
	archiver, err := session.NewArchiver(archiveDir)
	if err != nil {
		return fmt.Errorf("failed to create episode archiver: %w", err)
	}
	d.archiver = archiver

	if err := d.initializeReplies(); err != nil {
		return fmt.Errorf("failed to initialize reply texts: %w", err)
	}

	if err := d.initializeChannelRegistry(); err != nil {
		return fmt.Errorf("failed to initialize channel registry: %w", err)
	}

	if d.config.Channels.Telegram.Enabled {
		if err := d.initializeTelegram(); err != nil {
			return fmt.Errorf("failed to initialize telegram: %w", err)
		}
		d.transport = d.telegramBot
	} else {
		// Without a messaging channel, outbound replies go to the log.
		// Keeps the flow testable in development setups.
		d.transport = newLogTransport(d.logger.GetZerolog())
		d.logger.Warn().Msg("Telegram channel disabled; outbound replies are logged only")
	}

	engine, err := conversation.New(conversation.Config{
		Store:     d.store,
		Transport: d.transport,
		Replies:   d.replies,
		Queue:     d.queue,
		Archiver:  d.archiver,
		Metrics:   d.metrics,
		Logger:    d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation engine: %w", err)
	}
	d.engine = engine
	d.logger.Info().Msg("Conversation engine initialized")

	return nil
}

// initializeReplies picks the reply text source: a watched file when
// configured, otherwise the built-in defaults.
func (d *Daemon) initializeReplies() error {
	if d.config.Replies.File == "" {
		d.replies = replies.NewStatic(replies.Defaults())
		d.logger.Info().Msg("Using built-in reply texts")
		return nil
	}

	loader, err := replies.NewLoader(replies.LoaderConfig{
		Path:     d.config.Replies.File,
		Debounce: time.Duration(d.config.Replies.ReloadDebounce) * time.Millisecond,
		Logger:   d.logger.GetZerolog(),
		OnReload: func(replies.Set) {
			d.logger.Info().Str("file", d.config.Replies.File).Msg("Reply texts reloaded")
		},
	})
	if err != nil {
		return err
	}
	d.repliesLoader = loader
	d.replies = loader
	d.logger.Info().
		Str("file", d.config.Replies.File).
		Bool("hot_reload", d.config.Replies.HotReload).
		Msg("Reply texts loaded from file")
	return nil
}

// initializeTelegram wires the bot, the DM policy handler, and pairing
func (d *Daemon) initializeTelegram() error {
	bot, err := telegram.New(&d.config.Telegram, d.logger, d.metrics)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	d.telegramBot = bot

	pendingPath, allowlistPath := pairing.DefaultPaths(d.config.DataDir, telegram.ChannelName)
	pairingManager, err := pairing.NewManager(pairing.ManagerOptions{
		Channel:            telegram.ChannelName,
		PendingPath:        pendingPath,
		AllowlistPath:      allowlistPath,
		BootstrapAllowlist: append([]string{}, d.config.Telegram.Allowlist...),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telegram pairing manager: %w", err)
	}
	d.telegramPairing = pairingManager

	bot.SetHandler(telegram.NewHandler(bot, pairingManager))

	if err := d.registerChannel(bot); err != nil {
		return fmt.Errorf("failed to register telegram channel: %w", err)
	}

	d.logger.Info().Str("dm_policy", d.config.Telegram.DMPolicy).Msg("Telegram bot initialized")
	return nil
}

// initializeServices initializes the admin, gateway, and reminder services
func (d *Daemon) initializeServices() error {
	if d.config.Channels.Gateway.Enabled {
		gatewayServer, err := gateway.NewServer(gateway.Config{
			Port:         d.config.Gateway.Port,
			SharedSecret: d.config.Gateway.SharedSecret,
			Store:        d.store,
			Transport:    d.transport,
			Dispatch:     d.channelRegistry.Dispatch,
			Metrics:      d.metrics,
			Logger:       d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create gateway server: %w", err)
		}
		d.gatewayServer = gatewayServer

		// Operators see every state change live
		d.engine.OnTransition(gatewayServer.PublishTransition)

		d.logger.Info().Int("port", d.config.Gateway.Port).Msg("Gateway server initialized")
	}

	if d.config.Admin.Enabled {
		adminServer, err := admin.NewServer(admin.ServerOptions{
			Host:               d.config.Admin.Host,
			Port:               d.config.Admin.Port,
			RateLimitPerMinute: d.config.Admin.RateLimitPerMin,
			ShutdownGrace:      time.Duration(d.config.Admin.ShutdownGraceSecs) * time.Second,
		}, d.store, d.transport, d.metrics, d.logger.GetZerolog())
		if err != nil {
			return fmt.Errorf("failed to create admin server: %w", err)
		}
		d.adminServer = adminServer
		d.logger.Info().Int("port", d.config.Admin.Port).Msg("Admin server initialized")
	}

	if d.config.Reminder.Enabled {
		reminderJob, err := reminder.New(reminder.Config{
			Schedule:  d.config.Reminder.Schedule,
			Store:     d.store,
			Transport: d.transport,
			Replies:   d.replies,
			Metrics:   d.metrics,
			Logger:    d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create queue reminder: %w", err)
		}
		d.reminderJob = reminderJob
		d.logger.Info().Str("schedule", d.config.Reminder.Schedule).Msg("Queue reminder initialized")
	}

	return nil
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting Antria daemon")

	// Start lifecycle manager
	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	// Start reply file watcher
	if d.repliesLoader != nil && d.config.Replies.HotReload {
		if err := d.repliesLoader.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start reply file watcher")
		} else {
			logger.Info().Msg("Reply file watcher started")
		}
	}

	// Start gateway server
	if d.gatewayServer != nil {
		if err := d.gatewayServer.Start(); err != nil {
			return fmt.Errorf("failed to start gateway server: %w", err)
		}
		logger.Info().Msg("Gateway server started")
	}

	// Start admin server
	if d.adminServer != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.adminServer.Start(); err != nil {
				d.logger.Error().Err(err).Msg("Admin server error")
			}
		}()
		logger.Info().Msg("Admin server started")
	}

	// Start ingress channels
	if err := d.channelRegistry.StartAll(d.ctx); err != nil {
		return fmt.Errorf("failed to start ingress channels: %w", err)
	}
	logger.Info().Strs("channels", d.channelRegistry.Names()).Msg("Ingress channels started")

	// Start queue reminder
	if d.reminderJob != nil {
		if err := d.reminderJob.Start(); err != nil {
			return fmt.Errorf("failed to start queue reminder: %w", err)
		}
		logger.Info().Msg("Queue reminder started")
	}

	// Start event loop
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.eventLoop.Run(d.ctx)
	}()

	logger.Info().Msg("Daemon started successfully - all core modules active")

	return nil
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping Antria daemon")

	// Stop ingress first so no new work arrives
	if err := d.channelRegistry.StopAll(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed to stop ingress channels")
	}

	// Stop queue reminder
	if d.reminderJob != nil {
		d.reminderJob.Stop()
	}

	// Let in-flight sender work drain before tearing down outbound
	d.queue.WaitForActive(5 * time.Second)

	// Stop gateway server
	if d.gatewayServer != nil {
		if err := d.gatewayServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop gateway server")
		}
	}

	// Stop admin server
	if d.adminServer != nil {
		if err := d.adminServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop admin server")
		}
	}

	// Stop command queue
	if err := d.queue.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close command queue")
	}
	logger.Info().Msg("Command queue stopped")

	// Stop reply file watcher
	if d.repliesLoader != nil {
		if err := d.repliesLoader.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop reply file watcher")
		}
	}

	// Cancel context
	d.cancel()

	// Wait for goroutines to finish (with timeout)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	// Stop lifecycle manager
	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait waits for the daemon to stop
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// Engine returns the conversation engine
func (d *Daemon) Engine() *conversation.Engine {
	return d.engine
}

// Store returns the session store
func (d *Daemon) Store() session.Store {
	return d.store
}
