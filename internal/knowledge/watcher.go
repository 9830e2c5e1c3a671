package knowledge

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the table whenever its backing file is rewritten. It blocks
// until ctx is done. Editors and config pushes often replace the file
// (rename + create), so the watch is on the parent directory.
func (t *Table) Watch(ctx context.Context) error {
	if t.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(t.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := t.Reload(); err != nil {
				slog.Warn("faq reload failed, keeping previous table",
					"path", t.path, "error", err)
				continue
			}
			slog.Info("faq table reloaded", "path", t.path, "entries", t.Len())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("faq watcher error", "error", err)
		}
	}
}
