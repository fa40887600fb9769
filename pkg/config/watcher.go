package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PricingWatcher watches the pricing file for changes and triggers reloads.
// It debounces rapid event bursts so editors that write in several steps
// cause a single reload.
type PricingWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	path     string
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// PricingWatcherConfig contains configuration for the pricing watcher.
type PricingWatcherConfig struct {
	// Path is the pricing file to watch.
	Path string

	// DebounceInterval is the quiet period required before a reload fires
	// (default: 100ms).
	DebounceInterval time.Duration
}

// NewPricingWatcher creates a watcher for the given pricing file.
func NewPricingWatcher(cfg PricingWatcherConfig, logger *slog.Logger) (*PricingWatcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("pricing watcher: path cannot be empty")
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &PricingWatcher{
		watcher:  watcher,
		logger:   logger.With("component", "pricing-watcher"),
		path:     cfg.Path,
		debounce: NewDebouncer(cfg.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or
// Stop is called. onReload is invoked after each debounced change to the
// pricing file; reload errors are logged and watching continues, leaving
// the previous pricing table in effect.
func (pw *PricingWatcher) Watch(ctx context.Context, onReload func() error) error {
	pw.mu.Lock()
	if pw.running {
		pw.mu.Unlock()
		return fmt.Errorf("pricing watcher already running")
	}
	pw.running = true
	pw.mu.Unlock()

	defer func() {
		pw.mu.Lock()
		pw.running = false
		pw.mu.Unlock()
		close(pw.doneCh)
	}()

	// Watch the parent directory. Editors and config tooling commonly
	// replace the file by rename, which drops a watch on the file itself.
	dir := filepath.Dir(pw.path)
	if err := pw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	pw.logger.Info("Pricing watcher started",
		"path", pw.path,
		"debounce_ms", pw.debounce.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			pw.logger.Info("Pricing watcher stopped (context cancelled)")
			return nil

		case <-pw.stopCh:
			pw.logger.Info("Pricing watcher stopped")
			return nil

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if !pw.shouldProcessEvent(event) {
				continue
			}

			pw.logger.Debug("Pricing file event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			pw.debounce.Trigger(func() {
				pw.logger.Info("Reloading pricing", "path", pw.path)
				if err := onReload(); err != nil {
					pw.logger.Error("Pricing reload failed; keeping previous table",
						"error", err,
					)
				}
			})

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			pw.logger.Error("Pricing watcher error", "error", err)
			// Continue watching despite errors
		}
	}
}

// Stop stops the watcher and waits for the event loop to exit.
func (pw *PricingWatcher) Stop() error {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return nil
	}
	pw.mu.Unlock()

	close(pw.stopCh)
	<-pw.doneCh

	pw.debounce.Stop()

	if err := pw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// shouldProcessEvent filters directory events down to writes of the
// watched pricing file.
func (pw *PricingWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(pw.path)
}

// Debouncer collects rapid events and runs the callback only after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger schedules the callback after the debounce interval, replacing
// any pending callback.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	})
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
