// Package watcher coalesces filesystem events into debounced rebuild batches
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/assetforge/assetforge/pkg/logger"
	"github.com/assetforge/assetforge/pkg/types"
	"github.com/assetforge/assetforge/pkg/utils"
)

// DefaultDebounce is the settle window between the last event and a flush.
const DefaultDebounce = 300 * time.Millisecond

// Change is one coalesced source file mutation.
type Change struct {
	Path    string
	Deleted bool
}

// FlushFunc receives the coalesced change batch once the debounce window
// settles. It runs synchronously in the watch loop; events arriving during
// a flush queue up for the next window.
type FlushFunc func(ctx context.Context, changes []Change)

// Service watches a source root recursively and batches rapid change
// bursts into single flushes. States: idle until an event arrives, pending
// while the debounce timer is armed (each event re-arms it), flushing
// while the callback runs.
type Service struct {
	root     string
	debounce time.Duration
	logger   logger.Logger

	watcher *fsnotify.Watcher
	dirty   map[string]Change
}

// New creates a watch service over the source root. A non-positive
// debounce falls back to DefaultDebounce.
func New(root string, debounce time.Duration, log logger.Logger) (*Service, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Service{
		root:     root,
		debounce: debounce,
		logger:   log,
		watcher:  w,
		dirty:    make(map[string]Change),
	}, nil
}

// Close releases the underlying watcher.
func (s *Service) Close() error {
	return s.watcher.Close()
}

// Run blocks processing events until the context is cancelled. An armed
// debounce timer is dropped on cancellation without flushing the pending
// batch; a flush already in progress completes first. Flush failures
// never terminate the loop.
func (s *Service) Run(ctx context.Context, flush FlushFunc) error {
	if err := s.addTree(s.root); err != nil {
		return err
	}

	s.logger.Info("Watching for changes",
		logger.WithField("root", s.root),
		logger.WithField("debounce", s.debounce))

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			if len(s.dirty) > 0 {
				s.logger.Debug("Discarding pending changes on shutdown",
					logger.WithField("count", len(s.dirty)))
			}
			return ctx.Err()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if s.handleEvent(event) {
				timer.Reset(s.debounce)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("Watcher error", logger.WithField("error", err))

		case <-timer.C:
			changes := s.drain()
			if len(changes) == 0 {
				continue
			}
			s.logger.Debug("Debounce settled",
				logger.WithField("changes", len(changes)))
			flush(ctx, changes)
		}
	}
}

// handleEvent records a relevant event in the dirty set and reports
// whether the debounce timer should re-arm.
func (s *Service) handleEvent(event fsnotify.Event) bool {
	if s.isExcluded(event.Name) {
		return false
	}

	// New directories join the watch tree.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addTree(event.Name); err != nil {
				s.logger.Warn("Failed to watch new directory",
					logger.WithField("path", event.Name),
					logger.WithField("error", err))
			}
			return false
		}
	}

	if types.KindForPath(event.Name) == types.AssetKindUnknown {
		return false
	}

	deleted := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	if !deleted && event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}

	s.dirty[event.Name] = Change{Path: event.Name, Deleted: deleted}
	return true
}

func (s *Service) drain() []Change {
	if len(s.dirty) == 0 {
		return nil
	}
	changes := make([]Change, 0, len(s.dirty))
	for _, change := range s.dirty {
		changes = append(changes, change)
	}
	s.dirty = make(map[string]Change)
	return changes
}

// addTree registers dir and all non-excluded subdirectories.
func (s *Service) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && s.isExcluded(path) {
			return filepath.SkipDir
		}
		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("Failed to watch directory",
				logger.WithField("path", path),
				logger.WithField("error", err))
		}
		return nil
	})
}

func (s *Service) isExcluded(path string) bool {
	base := filepath.Base(path)
	for _, exc := range utils.DefaultExclusions() {
		if base == exc {
			return true
		}
	}
	return false
}
