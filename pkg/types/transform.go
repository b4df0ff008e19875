package types

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// TransformKind enumerates the closed set of pipeline steps. Adding a kind
// is a compile-time extension: every switch over TransformKind must handle it.
type TransformKind string

const (
	TransformResize         TransformKind = "resize"
	TransformTrim           TransformKind = "trim"
	TransformRecompress     TransformKind = "recompress"
	TransformGenerateMip    TransformKind = "generate-mip"
	TransformSimplify       TransformKind = "simplify"
	TransformBufferCompress TransformKind = "buffer-compress"
	TransformNormalize      TransformKind = "normalize"
	TransformResample       TransformKind = "resample"
	TransformEncode         TransformKind = "encode"
)

// Transform is one ordered, pure pipeline step. Exactly the parameter set
// matching Kind is populated; the rest stay nil and are omitted from the
// serialized form so signatures stay stable.
type Transform struct {
	Kind TransformKind `json:"kind"`

	Resize         *ResizeParams         `json:"resize,omitempty"`
	Trim           *TrimParams           `json:"trim,omitempty"`
	Recompress     *RecompressParams     `json:"recompress,omitempty"`
	GenerateMip    *GenerateMipParams    `json:"generateMip,omitempty"`
	Simplify       *SimplifyParams       `json:"simplify,omitempty"`
	BufferCompress *BufferCompressParams `json:"bufferCompress,omitempty"`
	Normalize      *NormalizeParams      `json:"normalize,omitempty"`
	Resample       *ResampleParams       `json:"resample,omitempty"`
	Encode         *EncodeParams         `json:"encode,omitempty"`
}

// ResizeParams caps the longest image dimension.
type ResizeParams struct {
	MaxSize int `json:"maxSize"`
}

// TrimParams crops to the opaque bounding box. Pixels with alpha at or
// below Threshold count as transparent.
type TrimParams struct {
	Threshold uint8 `json:"threshold"`
}

// RecompressParams re-encodes in the current format at the given quality.
type RecompressParams struct {
	Quality int `json:"quality"`
}

// GenerateMipParams requests a mipmap chain. Levels of 0 means full chain.
type GenerateMipParams struct {
	Levels int `json:"levels"`
}

// SimplifyParams generates reduced-detail mesh LODs.
type SimplifyParams struct {
	LODCount int     `json:"lodCount"`
	LODRatio float64 `json:"lodRatio"`
}

// BufferCompressParams requests vertex/index buffer compression.
type BufferCompressParams struct {
	Level int `json:"level"`
}

// NormalizeParams scales audio to a target peak amplitude.
type NormalizeParams struct {
	TargetPeak float64 `json:"targetPeak"`
}

// ResampleParams converts audio to a target sample rate.
type ResampleParams struct {
	SampleRate int `json:"sampleRate"`
}

// EncodeParams selects the final output codec and quality.
type EncodeParams struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

// Pipeline is the ordered transform sequence derived for one asset, plus
// the target output format. It is a value type: two pipelines with equal
// signatures are interchangeable.
type Pipeline struct {
	Kind         AssetKind   `json:"kind"`
	Steps        []Transform `json:"steps,omitempty"`
	OutputFormat string      `json:"outputFormat,omitempty"`

	// Atlas marks the asset as a member of the named sprite atlas group.
	Atlas      bool   `json:"atlas,omitempty"`
	AtlasGroup string `json:"atlasGroup,omitempty"`
	TrimSprite bool   `json:"trimSprite,omitempty"`
}

// NoopPipeline is resolved for unrecognized file types; such assets are
// skipped during job generation.
func NoopPipeline() Pipeline {
	return Pipeline{Kind: AssetKindUnknown}
}

// IsNoop reports whether the pipeline performs no work.
func (p Pipeline) IsNoop() bool {
	return p.Kind == AssetKindUnknown || (len(p.Steps) == 0 && p.OutputFormat == "" && !p.Atlas)
}

// Signature returns the deterministic serialized form used in cache keys.
// encoding/json writes struct fields in declaration order, so equal
// pipelines always produce identical signatures.
func (p Pipeline) Signature() string {
	data, err := json.Marshal(p)
	if err != nil {
		// Pipeline contains only marshalable fields; this cannot happen.
		panic(fmt.Sprintf("pipeline signature: %v", err))
	}
	return string(data)
}

// OutputPathFor maps a source-relative path to its output-relative path,
// switching the extension when the pipeline re-encodes to another format.
func (p Pipeline) OutputPathFor(relPath string) string {
	if p.OutputFormat == "" {
		return relPath
	}
	ext := filepath.Ext(relPath)
	return strings.TrimSuffix(relPath, ext) + "." + p.OutputFormat
}
