package vectorstore

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever its source file is rewritten by the
// external ingestion job. The watcher runs until ctx is done. A failed
// reload keeps the previous snapshot and is only logged.
func Watch(ctx context.Context, store *Store, path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory rather than the file: ingestion jobs replace
	// the file by rename, which would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := store.Reload(path); err != nil {
					logger.Error("store reload failed, keeping previous snapshot",
						"path", path,
						"error", err,
					)
					continue
				}
				logger.Info("store reloaded",
					"path", path,
					"records", store.Len(),
					"dimension", store.Dimension(),
				)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("store watcher error", "error", err)
			}
		}
	}()

	return nil
}
