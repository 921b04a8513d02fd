package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/mediacatalog/domain/config"
)

// Watch reloads the file at path each time it is written or replaced and
// passes the result to onChange. Watcher errors are passed as well. It
// returns nil once ctx is done.
func (l *Loader) Watch(ctx context.Context, path string, onChange func(*config.CatalogConfig, error)) error {
	if path == "" {
		return fmt.Errorf("%w: no file to watch", config.ErrConfigNotFound)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != absPath || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			onChange(l.LoadFile(absPath))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(nil, err)
		}
	}
}
