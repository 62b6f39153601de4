// Package lifecycle reads the external environment-verification document
// and watches it for changes.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"opsd/internal/domain"
)

// Read parses the status document at path. The document is external and
// read-only; the console never writes it.
func Read(path string) (domain.LifecycleStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.LifecycleStatus{}, fmt.Errorf("read lifecycle status: %w", err)
	}
	var status domain.LifecycleStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.LifecycleStatus{}, fmt.Errorf("decode lifecycle status: %w", err)
	}
	return status, nil
}

// Watch blocks until ctx is done, invoking onChange whenever the document is
// written or recreated. The parent directory is watched so editors that
// replace the file atomically still trigger.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func()) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("lifecycle status document changed", zap.String("path", target), zap.String("op", event.Op.String()))
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("lifecycle watcher error", zap.Error(err))
		}
	}
}
