package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle absorbs the burst of events an editor's save produces before
// triggering a single reload.
const watchSettle = 100 * time.Millisecond

// Watch monitors path and invokes reload each time the file is rewritten.
// It runs until ctx is cancelled.
//
// reload is the same function the HTTP reload endpoint calls, so both
// triggers share one code path. If it fails (e.g. invalid YAML), the error
// is logged and the previous configuration stays active.
func Watch(ctx context.Context, path string, reload func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	var settle *time.Timer
	var settleC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save atomically via rename, which surfaces as a
			// Create on the watched path. React to Write or Create only.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(watchSettle)
				settleC = settle.C
			} else {
				settle.Reset(watchSettle)
			}

		case <-settleC:
			settle, settleC = nil, nil

			if err := reload(); err != nil {
				slog.Error("config: reload failed — keeping previous config",
					"path", path, "err", err)
			} else {
				slog.Info("config: reloaded", "path", path)
			}

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
