package statefile

import (
	"context"
	"github.com/fsnotify/fsnotify"
	"github.com/myrjola/blackwood/internal/errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// WatchDebounce is how long Watch waits for writes to settle before reporting a change.
const WatchDebounce = 100 * time.Millisecond

// Watch calls onChange after the file at path has been written or replaced, for example by another blackwood
// process. Bursts of events within WatchDebounce are reported once. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Save replaces the file with a rename so the directory is watched instead of the file.
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // rwxr-xr-x
		return errors.Wrap(err, "create state directory", slog.String("dir", dir))
	}
	if err = watcher.Add(dir); err != nil {
		return errors.Wrap(err, "watch state directory", slog.String("dir", dir))
	}

	target := filepath.Clean(path)
	debounce := time.NewTimer(WatchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(WatchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watch state file", slog.String("path", path))
		case <-debounce.C:
			onChange()
		}
	}
}
