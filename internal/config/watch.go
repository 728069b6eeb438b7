package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchFixtures reloads the fixtures file whenever it changes and hands the
// result to onChange. The parent directory is watched so saves that replace
// the file (write to temp, rename over) keep being seen. A file that fails to
// load, or goes missing, leaves the previous fixtures in place. Blocks until
// ctx is done.
func WatchFixtures(ctx context.Context, log *zap.Logger, path string, onChange func(*Fixtures)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("fixtures path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fixtures watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	log = log.With(zap.String("path", abs))
	log.Info("fixtures_watching")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				log.Warn("fixtures_file_gone", zap.String("op", ev.Op.String()))
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fx, err := LoadFixtures(abs)
			if err != nil {
				log.Error("fixtures_reload_failed", zap.Error(err))
				continue
			}
			log.Info("fixtures_reloaded", zap.Int("monitors", len(fx.Monitors)))
			onChange(fx)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("fixtures_watcher_error", zap.Error(err))
		}
	}
}
