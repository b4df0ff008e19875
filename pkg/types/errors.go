package types

import (
	"errors"
	"fmt"
)

// ErrCacheCorruption marks an unreadable cache manifest. It is recovered,
// not fatal: the store logs a warning and starts from an empty cache.
var ErrCacheCorruption = errors.New("cache manifest corrupt")

// ConfigError is fatal: it aborts a run before any job is dispatched.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

// NewConfigError formats a fatal configuration error.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// ProcessorError wraps a failure reported by an external codec collaborator.
// It is recorded per job and never aborts the rest of the build.
type ProcessorError struct {
	Path string
	Step TransformKind
	Err  error
}

func (e *ProcessorError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("processor failed on %s (step %s): %v", e.Path, e.Step, e.Err)
	}
	return fmt.Sprintf("processor failed on %s: %v", e.Path, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// AtlasOverflowError reports that packing cannot fit within the configured
// page bounds. RequiredWidth and RequiredHeight are the minimum page
// dimensions that would have admitted the input set.
type AtlasOverflowError struct {
	MaxWidth       int
	MaxHeight      int
	RequiredWidth  int
	RequiredHeight int
}

func (e *AtlasOverflowError) Error() string {
	return fmt.Sprintf("atlas overflow: sprites do not fit %dx%d, minimum %dx%d required",
		e.MaxWidth, e.MaxHeight, e.RequiredWidth, e.RequiredHeight)
}
