// Package monitor watches files the session depends on.
package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flowave-io/hclsh/pkg/log"
)

const debounce = 75 * time.Millisecond

// WatchFile posts to changed whenever path is written, created or replaced.
// Bursts of events within the debounce window produce one post, and a post
// is dropped when changed is full. The parent directory is watched so that
// editors which save by renaming are seen too. Watching stops with ctx.
func WatchFile(ctx context.Context, path string, changed chan<- struct{}) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	log.Debug("watching file", "path", abs)
	go func() {
		defer w.Close()
		timer := time.NewTimer(debounce)
		timer.Stop()
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				timer.Reset(debounce)
			case <-timer.C:
				select {
				case changed <- struct{}{}:
					log.Debug("file changed", "path", abs)
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("watch error", "path", abs, "err", err)
			}
		}
	}()
	return nil
}
