/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// RescanEvent is published whenever a debounced filesystem rescan
// completes, whether or not it found anything new.
type RescanEvent struct {
	Added int
	Err   error
}

const debounceWindow = 2 * time.Second

// Watch observes root for filesystem changes and publishes a RescanEvent
// on events after a debounced rescan. New subdirectories are added to the
// watch list as they appear (fsnotify does not watch recursively).
// Watch blocks until ctx is cancelled; a watcher failure is logged and
// the function returns without panicking, since proactive rescanning is
// a convenience, not a correctness requirement — songs missing from the
// catalog are still found on the next full scan.
func Watch(ctx context.Context, root string, cat *Catalog, reader MetadataReader, events chan<- RescanEvent, logger zerolog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn().Err(err).Msg("catalog watch disabled: create fsnotify watcher")
		return
	}
	defer watcher.Close()

	if err := addWatchTree(watcher, root); err != nil {
		logger.Warn().Err(err).Str("root", root).Msg("catalog watch disabled: initial watch")
		return
	}

	var debounce *time.Timer
	triggerRescan := func() {
		result, err := ScanDirectory(root, reader)
		if err != nil {
			select {
			case events <- RescanEvent{Err: err}:
			default:
			}
			return
		}
		added := cat.Merge(result.Accepted)
		select {
		case events <- RescanEvent{Added: added}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				_ = watcher.Add(event.Name) // best-effort; a new file is fine, a new dir needs this
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, triggerRescan)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("catalog watch error")
		}
	}
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
