// Package types provides core types and configuration schema for Asset Forge
package types

import (
	"path/filepath"
	"strings"
	"time"
)

// AssetKind classifies a source file by what processor family handles it.
type AssetKind string

const (
	AssetKindImage   AssetKind = "image"
	AssetKindModel   AssetKind = "model"
	AssetKindAudio   AssetKind = "audio"
	AssetKindUnknown AssetKind = "unknown"
)

// KindForPath detects the asset kind from a file extension.
func KindForPath(path string) AssetKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "png", "jpg", "jpeg", "webp", "bmp", "gif", "tga", "ktx2", "basis":
		return AssetKindImage
	case "gltf", "glb", "obj", "fbx":
		return AssetKindModel
	case "wav", "mp3", "ogg", "flac", "aac", "m4a":
		return AssetKindAudio
	default:
		return AssetKindUnknown
	}
}

// Description returns a human-readable name for the kind.
func (k AssetKind) Description() string {
	switch k {
	case AssetKindImage:
		return "Image/Texture"
	case AssetKindModel:
		return "3D Model"
	case AssetKindAudio:
		return "Audio"
	default:
		return "Unknown"
	}
}

// AssetRecord is an immutable snapshot of one source file at one instant.
type AssetRecord struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"contentHash"`
	Size        int64     `json:"size"`
	MTime       time.Time `json:"mtime"`
}

// BuildJob is the unit of scheduling. Jobs are independent of each other
// except atlas aggregates, which carry their member records.
type BuildJob struct {
	Asset      AssetRecord
	Pipeline   Pipeline
	OutputPath string

	// AtlasGroup is non-empty for aggregate atlas jobs. Members lists the
	// sprites that feed the page; Asset then holds the group's combined hash.
	AtlasGroup string
	Members    []AssetRecord
}

// IsAtlas reports whether the job produces an atlas page rather than a
// single transformed asset.
func (j *BuildJob) IsAtlas() bool { return j.AtlasGroup != "" }

// CacheEntry records one completed build output in the manifest.
type CacheEntry struct {
	Key        string    `json:"key"`
	OutputPath string    `json:"outputPath"`
	OutputHash string    `json:"outputHash"`
	Timestamp  time.Time `json:"timestamp"`
	SourcePath string    `json:"sourcePath,omitempty"`
}

// Manifest is the persisted cache state. Unknown JSON fields are ignored on
// load for forward compatibility.
type Manifest struct {
	Version int                   `json:"version"`
	Entries map[string]CacheEntry `json:"entries"`
}

// JobStatus is the outcome of one scheduled job.
type JobStatus string

const (
	JobStatusBuilt  JobStatus = "built"
	JobStatusCached JobStatus = "cached"
	JobStatusFailed JobStatus = "failed"
	// JobStatusWouldBuild is reported by dry runs for cache misses.
	JobStatusWouldBuild JobStatus = "would-build"
)

// JobResult is the per-job record aggregated into a BuildReport.
type JobResult struct {
	JobID      string
	SourcePath string
	OutputPath string
	Status     JobStatus
	Err        error
	InputSize  int64
	OutputSize int64
	Duration   time.Duration
}
