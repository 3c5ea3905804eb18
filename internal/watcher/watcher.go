// Package watcher watches the corpus document and triggers reindexing
// on change.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a single corpus file and invokes a callback after
// writes settle. The parent directory is watched so editors that
// replace the file via rename are still observed.
type Watcher struct {
	path     string
	onChange func(path string)
	debounce time.Duration

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger // optional; when set, logs debug events
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle delay before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for the corpus file at path. onChange is called
// with the path after each settled change.
func New(path string, onChange func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.started = true
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Debug("watcher starting", zap.String("path", w.path))
	}
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	}
	w.scheduleChange()
}

func (w *Watcher) scheduleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("corpus changed (debounced)", zap.String("path", w.path))
		}
		if w.onChange != nil {
			w.onChange(w.path)
		}
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
