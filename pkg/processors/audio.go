package processors

import (
	"context"

	"github.com/assetforge/assetforge/pkg/types"
)

// AudioProcessor is a passthrough stand-in. Normalize, resample, and
// encode steps are accepted but leave the byte stream untouched; a real
// vorbis or opus codec would slot in behind the same interface.
type AudioProcessor struct{}

// NewAudioProcessor returns the built-in audio processor.
func NewAudioProcessor() *AudioProcessor {
	return &AudioProcessor{}
}

// Kind implements Processor.
func (p *AudioProcessor) Kind() types.AssetKind { return types.AssetKindAudio }

// Process validates the steps and returns the input unchanged.
func (p *AudioProcessor) Process(ctx context.Context, input []byte, pipeline types.Pipeline) ([]byte, error) {
	for _, step := range pipeline.Steps {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		switch step.Kind {
		case types.TransformNormalize, types.TransformResample, types.TransformEncode:
		default:
			return nil, &types.ProcessorError{
				Step: step.Kind,
				Err:  errUnsupportedAudioTransform,
			}
		}
	}
	return input, nil
}
