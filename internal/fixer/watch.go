package fixer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ironsheep/sprite-tools/internal/fsutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrWatchedRootRemoved is returned by Watch when the source folder itself is
// deleted or renamed away.
var ErrWatchedRootRemoved = errors.New("watched folder was removed")

// debouncer calls fn once no Trigger has happened for the configured delay.
// Each Trigger re-arms the single pending timer.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the quiet period.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending call, if any.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// runOnce performs a batch pass unless one is already in progress, in which
// case the call is dropped. It reports whether a pass ran.
func (f *Fixer) runOnce(ctx context.Context) bool {
	if !f.running.CompareAndSwap(false, true) {
		f.log.Debug("batch already running, ignoring trigger")
		return false
	}
	defer f.running.Store(false)

	report, err := f.Run(ctx)
	if err != nil {
		f.logRunError(err)
		return true
	}
	f.log.Debug("batch finished",
		zap.Int("sprites", len(report.Results)),
		zap.Int("changed", len(report.Changed())),
		zap.Int("failed", len(report.Failed())))
	return true
}

func (f *Fixer) logRunError(err error) {
	if f.debug {
		f.log.Error("batch failed", zap.String("error", fmt.Sprintf("%+v", err)))
		return
	}
	f.log.Error("batch failed", zap.Error(err))
}

// Watch watches the source folder for new or modified PNGs and re-runs the
// batch once events have been quiet for the debounce period. It does not run
// an initial pass; callers run Run first.
//
// Failed runs are logged and watching continues. Watch returns when ctx is
// done, or with ErrWatchedRootRemoved when the source folder disappears.
func (f *Fixer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	root := filepath.Clean(f.opts.Folder)
	if err := f.addWatches(watcher, root); err != nil {
		return err
	}

	d := newDebouncer(f.opts.Debounce, func() { f.runOnce(ctx) })
	defer d.Stop()

	f.log.Info("watching for changes", zap.String("folder", root), zap.Duration("debounce", f.opts.Debounce))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if name == root && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				return ErrWatchedRootRemoved
			}
			if event.Has(fsnotify.Create) && f.opts.Recursive && fsutil.IsDir(name) {
				if err := f.addWatches(watcher, name); err != nil {
					f.log.Warn("failed to watch new folder", zap.String("folder", name), zap.Error(err))
				}
				// PNGs copied in with the folder raise no events of their own.
				d.Trigger()
				continue
			}
			if fsutil.IsPNG(name) && (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				f.log.Debug("change detected", zap.String("file", name), zap.Stringer("op", event.Op))
				d.Trigger()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// addWatches watches dir and, when recursive, every folder below it.
func (f *Fixer) addWatches(watcher *fsnotify.Watcher, dir string) error {
	dirs := []string{dir}
	if f.opts.Recursive {
		children, err := fsutil.ListDirs(dir)
		if err != nil {
			return err
		}
		dirs = append(dirs, children...)
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return errors.Wrapf(err, "failed to watch %q", d)
		}
	}
	return nil
}
