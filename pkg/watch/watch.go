// Package watch re-runs work when input files change.
//
// A [Watcher] watches the directories of a set of files and, after a quiet
// period, calls its change handler with the files that changed. Handlers
// run on their own goroutine, so a slow render can still be running when
// the next change arrives; the session the handler renders into discards
// whichever of the two finishes out of order.
package watch

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// DefaultDelay is the quiet period before a change is reported.
const DefaultDelay = 200 * time.Millisecond

// ChangeFunc handles a batch of changed files.
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher watches files for changes.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool
	delay    time.Duration
	onChange ChangeFunc
	onError  func(error)
	logger   *log.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

// WithOnError sets the handler for watch errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New watches files and calls onChange when any of them changes.
// Directories are watched rather than the files themselves so editors
// that replace files on save are still seen.
func New(files []string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	if len(files) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create file watcher")
	}
	w := &Watcher{
		fs:       fsw,
		files:    make(map[string]bool),
		delay:    DefaultDelay,
		onChange: onChange,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", f)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "watch %s", dir)
		}
	}
	return w, nil
}

// Run handles events until ctx is done, then waits for running handlers
// and closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		w.wg.Wait()
		w.fs.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !w.files[filepath.Clean(event.Name)] {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug("file changed", "file", event.Name, "op", event.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[filepath.Clean(event.Name)] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() { w.fire(ctx) })
}

func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for f := range w.pending {
		changed = append(changed, f)
	}
	w.pending = make(map[string]struct{})
	if w.closed || len(changed) == 0 || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	sort.Strings(changed)
	go func() {
		defer w.wg.Done()
		w.onChange(ctx, changed)
	}()
}
