// Package cache persists content-hash-keyed build results across runs
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/assetforge/assetforge/pkg/logger"
	"github.com/assetforge/assetforge/pkg/types"
	"github.com/assetforge/assetforge/pkg/utils"
)

const (
	manifestName    = "manifest.json"
	manifestVersion = 1
)

// Store is the build cache. Lookups and commits are safe for concurrent
// use from the scheduler's worker pool; the manifest is flushed once at
// the end of a build with an atomic write-temp-then-rename.
type Store struct {
	dir     string
	enabled bool
	logger  logger.Logger

	mu      sync.RWMutex
	entries map[string]types.CacheEntry
	dirty   bool
}

// NewStore creates a cache store rooted at dir. A disabled store answers
// every lookup with a miss and persists nothing.
func NewStore(dir string, enabled bool, log logger.Logger) *Store {
	return &Store{
		dir:     dir,
		enabled: enabled,
		logger:  log,
		entries: make(map[string]types.CacheEntry),
	}
}

// Key computes the cache key for one job: a SHA-256 over the content
// hash, the pipeline signature, and the normalized output path. Equal
// keys mean the cached output is reusable under the reproducibility
// assumption that pipelines are pure.
func Key(contentHash, pipelineSignature, outputPath string) string {
	h := sha256.New()
	h.Write([]byte(contentHash))
	h.Write([]byte{'\n'})
	h.Write([]byte(pipelineSignature))
	h.Write([]byte{'\n'})
	h.Write([]byte(filepath.ToSlash(filepath.Clean(outputPath))))
	return hex.EncodeToString(h.Sum(nil))
}

// Load reads the manifest from disk. A missing manifest yields an empty
// cache; a corrupt or version-mismatched one is recovered as an empty
// cache with a warning, never a fatal error.
func (s *Store) Load() error {
	if !s.enabled {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, manifestName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.warnCorruption(err)
		return nil
	}

	var manifest types.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		s.warnCorruption(err)
		return nil
	}
	if manifest.Version != manifestVersion {
		if s.logger != nil {
			s.logger.Warn("Cache manifest version mismatch, starting with empty cache",
				logger.WithField("found", manifest.Version),
				logger.WithField("want", manifestVersion))
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range manifest.Entries {
		s.entries[key] = entry
	}
	return nil
}

// Lookup returns the entry for key if it is still valid. An entry whose
// output file has disappeared is treated as a miss.
func (s *Store) Lookup(key string) (types.CacheEntry, bool) {
	if !s.enabled {
		return types.CacheEntry{}, false
	}

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return types.CacheEntry{}, false
	}
	if !utils.FileExists(entry.OutputPath) {
		return types.CacheEntry{}, false
	}
	return entry, true
}

// Commit records a completed build output. Safe for concurrent callers.
func (s *Store) Commit(entry types.CacheEntry) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	s.dirty = true
}

// Invalidate removes all entries built from the given source path, used
// when a watched source file is deleted.
func (s *Store) Invalidate(sourcePath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.SourcePath == sourcePath {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// Flush writes the manifest atomically. A crash mid-build can only lose
// entries committed since the last flush, never corrupt the manifest.
func (s *Store) Flush() error {
	if !s.enabled {
		return nil
	}

	s.mu.Lock()
	manifest := types.Manifest{
		Version: manifestVersion,
		Entries: make(map[string]types.CacheEntry, len(s.entries)),
	}
	for key, entry := range s.entries {
		manifest.Entries[key] = entry
	}
	s.dirty = false
	s.mu.Unlock()

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	return utils.WriteFileAtomic(filepath.Join(s.dir, manifestName), data)
}

// Purge deletes the manifest and all cache directory contents. Used by
// the clean command; the next build treats every asset as a miss.
func (s *Store) Purge() error {
	s.mu.Lock()
	s.entries = make(map[string]types.CacheEntry)
	s.dirty = false
	s.mu.Unlock()

	if err := os.RemoveAll(s.dir); err != nil {
		return err
	}
	return nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// NewEntry builds a cache entry stamped with the current time.
func NewEntry(key, outputPath, outputHash, sourcePath string) types.CacheEntry {
	return types.CacheEntry{
		Key:        key,
		OutputPath: outputPath,
		OutputHash: outputHash,
		Timestamp:  time.Now().UTC(),
		SourcePath: sourcePath,
	}
}

func (s *Store) warnCorruption(err error) {
	if s.logger != nil {
		s.logger.Warn("Cache manifest unreadable, rebuilding from scratch",
			logger.WithField("error", err),
			logger.WithField("cause", types.ErrCacheCorruption))
	}
}
