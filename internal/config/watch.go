package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the delay used when Watch is given a non-positive one.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the configuration at path whenever it changes and passes the
// result to onChange. Rapid successive writes are coalesced into one reload.
//
// The parent directory is watched rather than the file, so editors that save
// by renaming a temporary file over the original are still seen. Watch blocks
// until ctx is cancelled. onChange runs on the watching goroutine.
func Watch(ctx context.Context, path string, delay time.Duration, onChange func(Config, error)) error {
	if delay <= 0 {
		delay = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			timer.Reset(delay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onChange(Config{}, fmt.Errorf("watching %s: %w", abs, err))

		case <-timer.C:
			onChange(Load(abs))
		}
	}
}
