// Package watch reloads the recipe catalogs when their files change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 250 * time.Millisecond

// Watcher monitors a directory and calls reload once a burst of changes to
// the watched files has settled.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	files    map[string]struct{}
	debounce time.Duration
	reload   func(ctx context.Context) error
	logger   *zap.Logger
}

// New starts watching dir for changes to the named files (base names).
// The directory must exist.
func New(dir string, files []string, debounce time.Duration, reload func(ctx context.Context) error, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch: watching %s: %w", dir, err)
	}

	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[filepath.Base(f)] = struct{}{}
	}
	return &Watcher{
		watcher:  fw,
		dir:      dir,
		files:    set,
		debounce: debounce,
		reload:   reload,
		logger:   logger,
	}, nil
}

// Run handles events until ctx is canceled, then closes the watcher.
// Reload failures are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()
	w.logger.Info("watching catalog files", zap.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("catalog file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := w.reload(ctx); err != nil {
				w.logger.Warn("reload after file change failed", zap.Error(err))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.files[filepath.Base(event.Name)]; !ok {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}
