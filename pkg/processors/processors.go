// Package processors transforms raw asset bytes through pipeline steps
package processors

import (
	"context"

	"github.com/assetforge/assetforge/pkg/types"
)

// Processor applies every step of a pipeline to one asset's raw bytes.
// Implementations must be safe for concurrent use; the scheduler calls
// them from its worker pool.
type Processor interface {
	Kind() types.AssetKind
	Process(ctx context.Context, input []byte, pipeline types.Pipeline) ([]byte, error)
}

// Registry maps asset kinds to their processor.
type Registry struct {
	byKind map[types.AssetKind]Processor
}

// NewRegistry returns a registry with the built-in processors installed.
func NewRegistry() *Registry {
	r := &Registry{byKind: make(map[types.AssetKind]Processor)}
	r.Register(NewImageProcessor())
	r.Register(NewAudioProcessor())
	r.Register(NewModelProcessor())
	return r
}

// Register installs a processor, replacing any existing one for the kind.
func (r *Registry) Register(p Processor) {
	r.byKind[p.Kind()] = p
}

// For returns the processor for a kind, or nil when none is installed.
func (r *Registry) For(kind types.AssetKind) Processor {
	return r.byKind[kind]
}

// checkContext returns the context error between steps so long pipelines
// stop promptly on cancellation.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
