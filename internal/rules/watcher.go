package rules

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a Store when one of its rule files changes. Parent
// directories are watched rather than the files themselves so that editors
// which save by rename are still observed.
type Watcher struct {
	store    *Store
	fw       *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *slog.Logger

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewWatcher watches the files of store's source.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		store:    store,
		fw:       fw,
		files:    make(map[string]bool),
		debounce: debounce,
		logger:   logger.WithComponent("rules-watcher"),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, f := range store.Source().Files() {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	w.logger.Info("watching rule files", "files", len(w.files))
}

func (w *Watcher) loop(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("rule file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			if pending {
				pending = false
				w.store.Reload(ctx)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// Stop ends monitoring and waits for the event loop. Safe to call multiple
// times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.done)
	w.mu.Unlock()

	err := w.fw.Close()
	w.wg.Wait()
	return err
}
