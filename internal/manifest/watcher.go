// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses editor save bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads the broker manifest whenever the file changes on
// disk. The parent directory is watched rather than the file itself,
// so atomic-save editors (write temp, rename over) do not silently
// drop the watch.
type Watcher struct {
	path     string
	onReload func([]BrokerTarget, error)
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher for the manifest at path. onReload is
// called with the reloaded brokers, or with the load error when the
// changed file no longer parses.
func NewWatcher(path string, onReload func([]BrokerTarget, error), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch manifest directory: %w", err)
	}
	return &Watcher{path: path, onReload: onReload, logger: logger, fsw: fsw}, nil
}

// Run processes change events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			brokers, err := Load(w.path)
			if err != nil {
				w.logger.Warn("manifest_reload_failed", "path", w.path, "error", err.Error())
			} else {
				w.logger.Info("manifest_reloaded", "path", w.path, "brokers", len(brokers))
			}
			w.onReload(brokers, err)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("manifest_watch_error", "error", err.Error())
		}
	}
}
