package profile

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("profile watcher closed")

// DefaultDebounce coalesces bursts of file events into one change.
const DefaultDebounce = 100 * time.Millisecond

// Watcher observes profile directories and invalidates a DirLoader when a
// profile document is created, written, removed or renamed.
type Watcher struct {
	mu sync.Mutex

	watcher  *fsnotify.Watcher
	loader   *DirLoader
	onChange func(path string)
	debounce time.Duration
	logger   zerolog.Logger

	dirs    []string
	pending string
	timer   *time.Timer

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOnChange sets the callback invoked after the cache is invalidated.
// It receives the last changed path of a burst.
func WithOnChange(fn func(path string)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithDebounce sets the coalescing window. Zero disables coalescing.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l zerolog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher over the loader's search paths. Paths
// that do not exist are skipped.
func NewWatcher(loader *DirLoader, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		loader:   loader,
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range loader.Paths() {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("watch profile directory")
			continue
		}
		w.dirs = append(w.dirs, dir)
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.dirs...)
}

// Close stops the watcher. Pending notifications are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("profile watcher error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !relevant(ev.Op) || !IsDocument(ev.Name) {
		return
	}
	w.logger.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("profile document changed")

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.pending = ev.Name

	if w.debounce <= 0 {
		go w.fire()
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	path := w.pending
	onChange := w.onChange
	w.mu.Unlock()

	w.loader.Invalidate()
	if onChange != nil {
		onChange(filepath.Clean(path))
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}
