// Package watch signals changes to a single file. The parent directory is
// watched so atomic replacements (write temp file, rename) are seen too.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"operator-dashboard/src/logger"
)

// DefaultDebounce coalesces the burst of events produced by one save.
const DefaultDebounce = 250 * time.Millisecond

// FileWatcher reports changes to one file on Changes.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   logger.Logger
	changes  chan struct{}
}

// NewFileWatcher starts watching path. The file itself may not exist yet but
// its directory must.
func NewFileWatcher(path string, log logger.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &FileWatcher{
		watcher:  w,
		path:     abs,
		debounce: DefaultDebounce,
		logger:   log,
		changes:  make(chan struct{}, 1),
	}, nil
}

// Changes receives once per settled change. Pending signals are coalesced.
// The channel is closed when Run returns.
func (w *FileWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Run delivers change signals until ctx is cancelled.
func (w *FileWatcher) Run(ctx context.Context) {
	defer close(w.changes)
	defer w.watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				pending = time.After(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("[Watch] %s: %v", w.path, err)

		case <-pending:
			pending = nil
			w.logger.Debug("[Watch] %s changed", w.path)
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}
