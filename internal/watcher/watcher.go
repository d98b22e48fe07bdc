// Package watcher rebuilds the structure document when the content directory
// changes. Bursts of filesystem events are debounced into a single rebuild.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler runs once per debounced burst of changes.
type ChangeHandler func(ctx context.Context, paths []string)

// ContentWatcher watches a directory tree with fsnotify.
type ContentWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	delay   time.Duration
	handler ChangeHandler
	log     *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	fire    chan struct{}
}

// New creates a watcher for root and every directory below it.
func New(root string, delay time.Duration, handler ChangeHandler, log *slog.Logger) (*ContentWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &ContentWatcher{
		watcher: fw,
		root:    filepath.Clean(root),
		delay:   delay,
		handler: handler,
		log:     log,
		pending: make(map[string]struct{}),
		fire:    make(chan struct{}, 1),
	}
	if err := w.addRecursive(w.root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive adds a directory and all subdirectories to watch.
func (w *ContentWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *ContentWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("content watcher error", "error", err)
		case <-w.fire:
			w.flush(ctx)
		}
	}
}

func (w *ContentWatcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || ignored(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warn("watch new directory failed", "path", event.Name, "error", err)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *ContentWatcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	w.log.Info("content changed", "files", len(paths))
	w.handler(ctx, paths)
}

// ignored matches editor swap files and the hidden or "_" entries the builder
// skips.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") ||
		strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}
