package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader is anything that can reload its policy from a path
type Reloader interface {
	Reload(path string) error
}

// PolicyWatcher triggers an explicit reload whenever the policy file changes.
// The directory is watched rather than the file so editors that replace the
// file on save are still seen.
type PolicyWatcher struct {
	reloader Reloader
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewPolicyWatcher watches path and reloads r on change
func NewPolicyWatcher(r Reloader, path string) (*PolicyWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving policy path %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating policy watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &PolicyWatcher{
		reloader: r,
		path:     abs,
		debounce: 200 * time.Millisecond,
		watcher:  w,
	}, nil
}

// Run processes file events until ctx is cancelled
func (w *PolicyWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if err := w.reloader.Reload(w.path); err != nil {
				slog.Warn("Policy file changed but reload failed",
					"path", w.path,
					"error", err)
				continue
			}
			slog.Info("Policy reloaded after file change",
				"path", w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Policy watcher error",
				"error", err)
		}
	}
}
