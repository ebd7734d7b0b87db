package unit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"groovyls/internal/logging"
)

// Watcher debounces disk-change notifications under a project root and
// invalidates a Factory's file cache, grounded in the teacher's debounced
// filesystem-event watcher convention.
type Watcher struct {
	factory *Factory
	watcher *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher creates (but does not start) a Watcher over root, debouncing
// bursts of fs events by debounce before invalidating factory's file cache.
func NewWatcher(root string, factory *Factory, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(fw, root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		factory:  factory,
		watcher:  fw,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := info.Name()
		if path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if _, bad := excludedDirNames[base]; bad {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// Start begins processing filesystem events in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	log := logging.Get(logging.CategoryUnit)
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if shouldIgnore(ev.Name) {
				continue
			}
			log.Debug("unit watcher: fs event observed")
			w.scheduleInvalidate()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("unit watcher: fsnotify error")
			_ = err
		}
	}
}

func (w *Watcher) scheduleInvalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.factory.InvalidateFileCache()
	})
}

func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	_, excluded := excludedDirNames[base]
	return excluded
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	close(w.stopCh)
	err := w.watcher.Close()
	<-w.doneCh
	return err
}
