package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/metrics"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

const defaultDebounce = 100 * time.Millisecond

// BrandWatcher keeps a Normalizer's brand table in sync with a YAML file.
// A file that fails to parse leaves the previous table in place.
type BrandWatcher struct {
	path       string
	normalizer *sources.Normalizer
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewBrandWatcher creates a watcher for path. Call Start to load and watch.
func NewBrandWatcher(path string, normalizer *sources.Normalizer, logger *zap.Logger) (*BrandWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("brand table path cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &BrandWatcher{
		path:       filepath.Clean(path),
		normalizer: normalizer,
		watcher:    watcher,
		debounce:   defaultDebounce,
		logger:     logger,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Start loads the table once and begins watching its directory. Editors
// often replace files instead of writing them, so the directory is watched
// rather than the file.
func (w *BrandWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	if err := w.reload("initial_load"); err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch brand table directory: %w", err)
	}

	w.started = true
	go w.watchLoop(ctx)

	w.logger.Info("Brand table watcher started", zap.String("path", w.path))
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *BrandWatcher) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.started = false
	close(w.stopCh)
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	w.logger.Info("Brand table watcher stopped")
	return err
}

func (w *BrandWatcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Brand watch loop panicked", zap.Any("panic", r))
		}
	}()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			action := eventAction(event)
			if action == "" || filepath.Clean(event.Name) != w.path {
				continue
			}
			if action == "delete" || action == "rename" {
				w.logger.Warn("Brand table removed, keeping current table",
					zap.String("path", w.path),
					zap.String("action", action),
				)
				continue
			}
			// Coalesce rapid successive writes into one reload.
			pending = action
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			if err := w.reload(pending); err != nil {
				w.logger.Error("Failed to reload brand table",
					zap.String("path", w.path),
					zap.String("action", pending),
					zap.Error(err),
				)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *BrandWatcher) reload(action string) error {
	brands, err := sources.LoadBrands(w.path)
	if err != nil {
		metrics.BrandReloads.WithLabelValues("error").Inc()
		return err
	}
	w.normalizer.SetBrands(brands)
	metrics.BrandReloads.WithLabelValues("ok").Inc()

	w.logger.Info("Brand table loaded",
		zap.String("path", w.path),
		zap.String("action", action),
		zap.Int("brands", len(brands)),
	)
	return nil
}

func eventAction(event fsnotify.Event) string {
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		return "create"
	case event.Op&fsnotify.Write == fsnotify.Write:
		return "modify"
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		return "delete"
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		return "rename"
	default:
		return ""
	}
}
