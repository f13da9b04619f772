package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a distribution must stay quiet after a change
// before it is redeployed.
const DefaultDebounce = 500 * time.Millisecond

// dirWatcher calls a function whenever files under a directory change.
type dirWatcher struct {
	dir      string
	debounce time.Duration
	ignore   []string // absolute path prefixes whose events are dropped
	logger   *slog.Logger
}

// Run watches until ctx is done. Bursts of events are coalesced: onChange
// runs once the tree has been quiet for the debounce period. Directories
// created while watching are watched too.
func (w *dirWatcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.dir); err != nil {
		return err
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if err := w.addTree(watcher, event.Name); err != nil {
					w.logger.Debug("not watching new path", "path", event.Name, "error", err)
				}
			}
			w.logger.Debug("distribution changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree watches root and every directory below it. A root that is a
// plain file is ignored.
func (w *dirWatcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *dirWatcher) ignored(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, prefix := range w.ignore {
		if prefix != "" && strings.HasPrefix(abs, prefix) {
			return true
		}
	}
	return false
}

// absPaths resolves paths for dirWatcher.ignore, skipping empty ones.
func absPaths(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		}
	}
	return out
}
