package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Watch reloads the config file at path on every write event and invokes
// onChange with the freshly loaded Config. It blocks until ctx is
// cancelled or the watcher fails to start; reload errors are logged and
// skipped rather than propagated, so a transient write-in-progress (editor
// save in two steps) never kills the watcher.
func Watch(ctx context.Context, path string, log logr.Logger, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return swarmerrors.FailedTo("start config watcher", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return swarmerrors.FailedTo("watch config file "+path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Error(err, "config reload failed, keeping previous config", "path", path)
				continue
			}
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "config watcher error", "path", path)
		}
	}
}
