package replies

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Loader serves a reply set from a JSON file and hot-reloads it when the
// file changes. A broken edit keeps the last good set in service.
type Loader struct {
	path     string
	holder   holder
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onReload func(Set)

	debounce   time.Duration
	debounceMu sync.Mutex
	timer      *time.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// LoaderConfig configures a reply loader.
type LoaderConfig struct {
	Path     string
	Debounce time.Duration
	OnReload func(Set)
	Logger   zerolog.Logger
}

// NewLoader reads the file once and prepares the watcher. A missing file
// is not an error; the defaults are served until the file appears.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("replies file path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}

	l := &Loader{
		path:     cfg.Path,
		logger:   cfg.Logger.With().Str("component", "replies").Logger(),
		onReload: cfg.OnReload,
		debounce: cfg.Debounce,
		done:     make(chan struct{}),
	}

	set, err := ReadFile(cfg.Path)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", cfg.Path).Msg("Using default reply texts")
		set = Defaults()
	}
	l.holder.put(set)

	return l, nil
}

// Current returns the most recently loaded reply set.
func (l *Loader) Current() Set {
	return l.holder.get()
}

// Start begins watching the replies file directory. Watching the parent
// directory survives editors that replace the file by rename.
func (l *Loader) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch replies directory: %w", err)
	}

	go l.eventLoop()

	l.logger.Info().Str("path", l.path).Msg("Reply loader started")
	return nil
}

// Stop closes the watcher.
func (l *Loader) Stop() error {
	l.stopOnce.Do(func() {
		close(l.done)
	})

	l.debounceMu.Lock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.debounceMu.Unlock()

	if l.watcher != nil {
		if err := l.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
	}
	return nil
}

func (l *Loader) eventLoop() {
	for {
		select {
		case <-l.done:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(l.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			l.scheduleReload()
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Replies watcher error")
		}
	}
}

// scheduleReload debounces bursts of write events from editors.
func (l *Loader) scheduleReload() {
	l.debounceMu.Lock()
	defer l.debounceMu.Unlock()

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, l.reload)
}

func (l *Loader) reload() {
	set, err := ReadFile(l.path)
	if err != nil {
		l.logger.Error().Err(err).Str("path", l.path).Msg("Reply reload failed, keeping previous texts")
		return
	}

	l.holder.put(set)
	l.logger.Info().Str("path", l.path).Msg("Reply texts reloaded")

	if l.onReload != nil {
		l.onReload(set)
	}
}
