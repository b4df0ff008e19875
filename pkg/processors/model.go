package processors

import (
	"context"
	"errors"

	"github.com/assetforge/assetforge/pkg/types"
)

var (
	errUnsupportedAudioTransform = errors.New("unsupported audio transform")
	errUnsupportedModelTransform = errors.New("unsupported model transform")
)

// ModelProcessor is a passthrough stand-in for mesh optimization. Buffer
// compression, simplification, and GLB repacking are accepted as steps
// but leave the byte stream untouched.
type ModelProcessor struct{}

// NewModelProcessor returns the built-in model processor.
func NewModelProcessor() *ModelProcessor {
	return &ModelProcessor{}
}

// Kind implements Processor.
func (p *ModelProcessor) Kind() types.AssetKind { return types.AssetKindModel }

// Process validates the steps and returns the input unchanged.
func (p *ModelProcessor) Process(ctx context.Context, input []byte, pipeline types.Pipeline) ([]byte, error) {
	for _, step := range pipeline.Steps {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		switch step.Kind {
		case types.TransformBufferCompress, types.TransformSimplify, types.TransformEncode:
		default:
			return nil, &types.ProcessorError{
				Step: step.Kind,
				Err:  errUnsupportedModelTransform,
			}
		}
	}
	return input, nil
}
