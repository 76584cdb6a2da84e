// Package autolock re-seals a vault folder after a period of
// inactivity.
package autolock

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/illarion/phantom/internal/engine"
)

// Watch starts an fsnotify watcher over the vault folder and processes
// events until the folder has been idle for the given duration, then
// seals it and returns. A cancelled context stops the watcher without
// sealing.
//
// New directories created at runtime are automatically added to the
// watch list. Any event counts as activity and pushes the idle
// deadline out.
func Watch(ctx context.Context, eng *engine.Engine, folder string, password []byte, idle time.Duration, log zerolog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, folder); err != nil {
		return err
	}

	log.Info().Str("folder", folder).Dur("idle", idle).Msg("autolock: watching")

	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("autolock: stopped")
			return nil

		case <-timer.C:
			log.Info().Str("folder", folder).Msg("autolock: idle timeout, sealing")
			if _, err := eng.EncryptFolder(ctx, folder, password); err != nil {
				return err
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						log.Warn().Err(addErr).Str("path", ev.Name).Msg("autolock: add new dir failed")
					}
				}
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
			log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("autolock: activity")

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(watchErr).Msg("autolock: watcher error")
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
