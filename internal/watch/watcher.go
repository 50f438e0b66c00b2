// Package watch re-runs scaffold when its configuration changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc handles a debounced batch of changed files
type ChangeFunc func(ctx context.Context, files []string) error

// Watcher watches a set of files inside one directory. The directory is
// watched rather than the files so that editors replacing a file on save
// are still noticed.
type Watcher struct {
	dir      string
	names    map[string]bool
	delay    time.Duration
	onChange ChangeFunc
	logger   *zap.Logger
}

// New creates a watcher for names (relative to dir)
func New(dir string, names []string, delay time.Duration, onChange ChangeFunc, logger *zap.Logger) *Watcher {
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[filepath.Clean(n)] = true
	}
	return &Watcher{dir: dir, names: set, delay: delay, onChange: onChange, logger: logger}
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.dirs() {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", zap.String("dir", dir))
	}

	debouncer := NewDebouncer(w.delay)
	defer debouncer.Stop()
	debouncer.SetCallback(func(files []string) {
		if err := w.onChange(ctx, files); err != nil {
			w.logger.Error("failed to handle change", zap.Strings("files", files), zap.Error(err))
		}
	})

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if rel, ok := w.matches(event); ok {
				w.logger.Debug("file changed", zap.String("file", rel), zap.String("op", event.Op.String()))
				debouncer.Add(rel)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

// dirs returns the distinct directories holding the watched files
func (w *Watcher) dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for name := range w.names {
		dir := filepath.Join(w.dir, filepath.Dir(name))
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// matches reports whether event touches a watched file, returning its name
// relative to the watched directory
func (w *Watcher) matches(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil {
		return "", false
	}
	return rel, w.names[rel]
}

// Debouncer collects file changes and triggers callbacks after a delay.
// Callbacks never overlap: a batch completed while one is running waits for it.
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	running  sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add adds a file to the pending batch and restarts the delay
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush hands the batch, sorted, to the callback. The callback runs outside
// the batch lock so changes keep collecting meanwhile.
func (d *Debouncer) flush() {
	d.running.Lock()
	defer d.running.Unlock()

	d.mutex.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop drops the pending batch. Stop is idempotent.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
	d.files = make(map[string]struct{})
}
