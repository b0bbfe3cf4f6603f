package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultSettleDelay = 500 * time.Millisecond

// WatcherConfig configures an inbox Watcher.
type WatcherConfig struct {
	// Dir is the inbox directory. It is created if missing.
	Dir string

	Pool *Pool

	// Supports filters which files are enqueued, typically
	// extract.Registry.Supports.
	Supports func(path string) bool

	// SettleDelay is how long a file must go without write events before it
	// is enqueued. Defaults to 500ms.
	SettleDelay time.Duration

	Logger *zap.Logger
}

// Watcher enqueues files written into an inbox directory.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher starts watching the inbox directory. Call Run to process events.
func NewWatcher(c WatcherConfig) (*Watcher, error) {
	if c.Pool == nil {
		return nil, errors.New("pool is required")
	}
	if c.Supports == nil {
		return nil, errors.New("supports filter is required")
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating inbox dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating inbox watcher: %w", err)
	}
	if err := fw.Add(c.Dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching inbox dir: %w", err)
	}

	return &Watcher{
		config:  c,
		watcher: fw,
		logger:  c.Logger,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run processes filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching inbox for documents", zap.String("dir", w.config.Dir))

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.eligible(event.Name) {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("inbox watcher error: %w", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.stopPending()
	return w.watcher.Close()
}

func (w *Watcher) eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return w.config.Supports(path)
}

// schedule (re)arms the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.config.SettleDelay)
		return
	}

	w.pending[path] = time.AfterFunc(w.config.SettleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}

		w.config.Pool.Enqueue(Job{
			Path:   path,
			Source: filepath.Base(path),
		})
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
