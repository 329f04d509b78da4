// Package watcher delivers debounced change notifications for the completion
// log. Hosts use it to invalidate cached history snapshots between planning
// calls.
package watcher

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of log appends into one notification.
const DefaultDebounce = 200 * time.Millisecond

// ErrFileRemoved reports that the watched log disappeared. Appends after a
// re-create still notify; the error is informational.
var ErrFileRemoved = errors.New("watched file was removed")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets a logger for watch errors.
func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// Debouncer coalesces triggers: the function runs once per quiet window.
type Debouncer struct {
	mu    sync.Mutex
	d     time.Duration
	timer *time.Timer
}

// NewDebouncer returns a debouncer with the given quiet window.
func NewDebouncer(d time.Duration) *Debouncer {
	return &Debouncer{d: d}
}

// Trigger schedules fn after the quiet window, replacing any pending run.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.d, fn)
}

// Cancel drops any pending run.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Watcher monitors one file through fsnotify. The parent directory is
// watched so atomic replace-by-rename writes are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
	logger   *log.Logger

	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	changeCh  chan struct{}
	done      chan struct{}
}

// Watch starts watching path and invokes onChange, debounced, on every
// write, create, or rename of the file. Watching stops when ctx is
// canceled.
func Watch(ctx context.Context, path string, onChange func(), opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if onChange == nil {
		onChange = func() {}
	}

	w := &Watcher{
		path:     absPath,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   log.New(io.Discard, "", 0),
		changeCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	go w.run(ctx)
	return w, nil
}

// Path returns the watched file path.
func (w *Watcher) Path() string { return w.path }

// Changed receives one signal per debounced change, alongside the callback.
// The channel has capacity one; a slow reader misses intermediate signals,
// not the fact that something changed.
func (w *Watcher) Changed() <-chan struct{} { return w.changeCh }

// Done is closed once the watcher has shut down.
func (w *Watcher) Done() <-chan struct{} { return w.done }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()
	defer w.debouncer.Cancel()

	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				w.logger.Printf("watch %s: %v", w.path, ErrFileRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.notify)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch %s: %v", w.path, err)
		}
	}
}

func (w *Watcher) notify() {
	w.onChange()
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
