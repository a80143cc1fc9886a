package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/scene"
	"github.com/fsnotify/fsnotify"
)

// settle is how long the file must stay quiet before it is reloaded. Editors
// often write a file in several steps.
const settle = 100 * time.Millisecond

// watch evaluates path whenever it changes and delivers scenes that load
// cleanly. Only the newest pending scene is kept. Failed loads are logged and
// the previous scene stays on screen.
func watch(ctx context.Context, ld *loader, path string) (<-chan *scene.Scene, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors that save by rename replace the file.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan *scene.Scene, 1)
	go func() {
		defer watcher.Close()
		timer := time.NewTimer(settle)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(settle)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Logger().Warn("watch error", "err", err)
			case <-timer.C:
				sc, err := ld.load(abs)
				if err != nil {
					logging.Logger().Error("reload failed", "err", err)
					continue
				}
				logging.Logger().Info("scene reloaded", "file", path, "objects", sc.Len())
				select {
				case <-out:
				default:
				}
				out <- sc
			}
		}
	}()
	return out, nil
}
