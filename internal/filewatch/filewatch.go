// Package filewatch feeds on-disk edits of a source file into a session.
package filewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Editor receives the new contents of the watched file.
// *session.Controller satisfies it.
type Editor interface {
	Edit(text string)
}

// Watch delivers the current contents of path to ed, then every later
// version written to disk, until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors which
// save by rename-over keep being followed.
func Watch(ctx context.Context, path string, ed Editor, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	last, err := deliver(abs, ed, "")
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			text, err := deliver(abs, ed, last)
			if err != nil {
				// Mid-save: the file may be briefly absent.
				logger.Debug("reading watched file failed", "op", "watch", "err", err)
				continue
			}
			last = text

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "op", "watch", "err", err)
		}
	}
}

// deliver reads path and hands it to ed unless it equals last.
func deliver(path string, ed Editor, last string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return last, fmt.Errorf("%s: %w", path, err)
		}
		return last, err
	}
	text := string(data)
	if text != last {
		ed.Edit(text)
	}
	return text, nil
}
