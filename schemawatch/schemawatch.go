// Package schemawatch reloads a Schema when its backing IDL file (or
// any file it includes) changes on disk, debouncing rapid successive
// writes from editors and deploy tooling.
package schemawatch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ritksm/thriftpy/internal/logging"
	"github.com/ritksm/thriftpy/schema"
)

// LoadFunc loads (or reloads) a Schema from its root path.
type LoadFunc func(path string) (*schema.Schema, error)

// Watcher watches one IDL root file for changes and reloads it via
// load, notifying registered callbacks on success.
type Watcher struct {
	watcher  *fsnotify.Watcher
	load     LoadFunc
	path     string
	dirs     []string
	mu       sync.RWMutex
	last     *schema.Schema
	callback []func(*schema.Schema)
	debounce time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Watcher for path, performing the initial load before
// returning. dirs are additional directories to watch for changed
// includes (e.g. the LoadOptions.IncludeDirs used to load path);
// changes under any of them also trigger a reload.
func New(path string, load LoadFunc, dirs ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		load:     load,
		path:     path,
		dirs:     dirs,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	s, err := load(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	w.last = s

	return w, nil
}

// OnChange registers a callback invoked with the newly reloaded
// Schema after a successful reload. Callbacks run on their own
// goroutine and must not block the watcher.
func (w *Watcher) OnChange(cb func(*schema.Schema)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = append(w.callback, cb)
}

// SetDebounce overrides the default 500ms coalescing window.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start watches path's directory (and any extra include dirs) and
// begins reloading on change. Must be called at most once.
func (w *Watcher) Start() error {
	watched := map[string]bool{filepath.Dir(w.path): true}
	for _, d := range w.dirs {
		watched[d] = true
	}
	for dir := range watched {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	var debounceTimer *time.Timer
	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("schemawatch: watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	s, err := w.load(w.path)
	if err != nil {
		logging.Error("schemawatch: reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.last = s
	callbacks := make([]func(*schema.Schema), len(w.callback))
	copy(callbacks, w.callback)
	w.mu.Unlock()

	logging.Info("schemawatch: schema reloaded", zap.String("path", w.path))
	for _, cb := range callbacks {
		go cb(s)
	}
}

// Schema returns the most recently (re)loaded Schema.
func (w *Watcher) Schema() *schema.Schema {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Stop halts the watcher's background goroutine and releases the
// underlying fsnotify handle. Idempotent.
func (w *Watcher) Stop() error {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	err := w.watcher.Close()
	<-w.doneCh
	return err
}
