package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path and calls onChange with the newly loaded Config each
// time the file is written. It runs until ctx is cancelled.
//
// A reload that fails to parse or validate is logged and skipped; onChange is
// not called and the previous config stays active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves arrive as Create after a rename.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", path,
				"rules", len(cfg.Server.Alerts.Rules),
				"webhooks", len(cfg.Server.Alerts.Webhooks))
			onChange(cfg)

			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
