package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the overrides file when it changes on disk
type Watcher struct {
	path    string
	logger  *logging.Logger
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	current   *Overrides
	callbacks []func(*Overrides)
}

// NewWatcher watches path. The parent directory is watched so that editors
// which replace the file are followed.
func NewWatcher(path string, initial *Overrides, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &Watcher{
		path:    filepath.Clean(path),
		logger:  logger.Named("config"),
		watcher: fsw,
		current: initial,
	}, nil
}

// OnChange registers a callback for every successful reload
func (w *Watcher) OnChange(fn func(*Overrides)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current returns the last good overrides
func (w *Watcher) Current() *Overrides {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run processes file events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDebounce)
			reload = timer.C

		case <-reload:
			timer, reload = nil, nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	o, err := LoadOverrides(w.path)
	if err != nil {
		w.logger.Warn("Keeping previous overrides", zap.String("file", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = o
	callbacks := make([]func(*Overrides), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("Overrides reloaded", zap.String("file", w.path), zap.Int("models", len(o.Models)))
	for _, fn := range callbacks {
		fn(o)
	}
}
