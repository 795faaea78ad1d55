package skills

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"enton/internal/logging"
)

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Reloads       int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher reloads skills when files in the registry's directory change.
// Rapid writes to one file are coalesced by the debounce window.
type Watcher struct {
	reg         *Registry
	debounceDur time.Duration
	now         func() time.Time

	mu          sync.Mutex
	debounceMap map[string]time.Time
	stats       WatcherStats
}

// NewWatcher creates a watcher for reg.
func NewWatcher(reg *Registry, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		reg:         reg,
		debounceDur: debounce,
		now:         time.Now,
		debounceMap: make(map[string]time.Time),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := os.MkdirAll(w.reg.Dir(), 0755); err != nil {
		logging.SkillsWarn("failed to create skills dir %s: %v", w.reg.Dir(), err)
	}
	if err := fw.Add(w.reg.Dir()); err != nil {
		return err
	}
	logging.Skills("watching %s", w.reg.Dir())

	tick := w.debounceDur / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Skills("watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.SkillsError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

// handleEvent records a change for later processing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !IsSkillFile(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case event.Op&fsnotify.Create != 0:
		w.stats.FilesCreated++
	case event.Op&fsnotify.Write != 0:
		w.stats.FilesModified++
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.stats.FilesDeleted++
	default:
		return
	}
	logging.SkillsDebug("%s %s", event.Op, event.Name)
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = w.now()
	w.debounceMap[event.Name] = w.now()
}

// processDebounced loads or unloads files whose last event is older than the
// debounce window. The file's presence on disk decides which.
func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := w.now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		if _, err := os.Stat(path); err != nil {
			w.reg.UnloadPath(ctx, path)
			continue
		}
		w.reg.LoadFile(ctx, path)
		w.mu.Lock()
		w.stats.Reloads++
		w.mu.Unlock()
	}
}

// Stats returns the current statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
