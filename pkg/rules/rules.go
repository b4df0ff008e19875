// Package rules resolves source paths to processing pipelines
package rules

import (
	"github.com/assetforge/assetforge/pkg/config"
	"github.com/assetforge/assetforge/pkg/types"
	"github.com/assetforge/assetforge/pkg/utils"
)

// Engine resolves a source-relative path to an ordered Pipeline using the
// config rules and the active platform preset. Rules are evaluated in
// declaration order and the last match wins field by field; unset fields
// fall back to the preset, then to format-inferred defaults.
type Engine struct {
	rules  []compiledRule
	preset types.PresetConfig
}

type compiledRule struct {
	rule    types.RuleConfig
	matcher *utils.PatternMatcher
}

// effective is the merged view of all matching rules over the preset.
type effective struct {
	format     string
	atlas      bool
	atlasGroup string
	trim       bool
	mipmap     bool
	meshopt    bool
	draco      bool
	normalize  bool
	quality    int
	hasQuality bool
	maxSize    int
}

// NewEngine compiles the config rules and resolves the active preset.
// An unknown preset name is a ConfigError.
func NewEngine(cfg *types.Config, presetName string) (*Engine, error) {
	preset, err := config.Preset(cfg, presetName)
	if err != nil {
		return nil, err
	}

	e := &Engine{preset: preset}

	if cfg != nil {
		for _, rule := range cfg.Rules {
			matcher, err := utils.NewPatternMatcher([]string{utils.NormalizePattern(rule.Pattern)})
			if err != nil {
				return nil, types.NewConfigError("rule %q: %v", rule.Pattern, err)
			}
			e.rules = append(e.rules, compiledRule{rule: rule, matcher: matcher})
		}
	}

	return e, nil
}

// Resolve maps a source-relative path to its Pipeline. Unrecognized file
// types resolve to a no-op pipeline and are skipped from job generation.
func (e *Engine) Resolve(relPath string) types.Pipeline {
	kind := types.KindForPath(relPath)
	if kind == types.AssetKindUnknown {
		return types.NoopPipeline()
	}

	eff := e.presetDefaults(kind)

	for _, cr := range e.rules {
		if !cr.matcher.Match(relPath) {
			continue
		}
		applyRule(&eff, cr.rule)
	}

	return materialize(kind, eff)
}

// presetDefaults seeds the effective fields from the active preset.
func (e *Engine) presetDefaults(kind types.AssetKind) effective {
	var eff effective

	switch kind {
	case types.AssetKindImage:
		if e.preset.TextureFormat != nil {
			eff.format = *e.preset.TextureFormat
		}
		if e.preset.TextureQuality != nil {
			eff.quality = *e.preset.TextureQuality
			eff.hasQuality = true
		}
		if e.preset.TextureMaxSize != nil {
			eff.maxSize = *e.preset.TextureMaxSize
		}
		if e.preset.GenerateMipmaps != nil {
			eff.mipmap = *e.preset.GenerateMipmaps
		}
	case types.AssetKindAudio:
		if e.preset.AudioFormat != nil {
			eff.format = *e.preset.AudioFormat
		}
		if e.preset.AudioQuality != nil {
			eff.quality = *e.preset.AudioQuality
			eff.hasQuality = true
		}
	case types.AssetKindModel:
		// Models always repack to GLB; compression is rule-driven.
		eff.format = "glb"
	}

	return eff
}

func applyRule(eff *effective, rule types.RuleConfig) {
	if rule.Format != nil {
		eff.format = *rule.Format
	}
	if rule.Atlas != nil {
		eff.atlas = *rule.Atlas
		if eff.atlas {
			eff.atlasGroup = utils.NormalizePattern(rule.Pattern)
		} else {
			eff.atlasGroup = ""
		}
	}
	if rule.Trim != nil {
		eff.trim = *rule.Trim
	}
	if rule.Mipmap != nil {
		eff.mipmap = *rule.Mipmap
	}
	if rule.Meshopt != nil {
		eff.meshopt = *rule.Meshopt
	}
	if rule.Draco != nil {
		eff.draco = *rule.Draco
	}
	if rule.Normalize != nil {
		eff.normalize = *rule.Normalize
	}
	if rule.Quality != nil {
		eff.quality = *rule.Quality
		eff.hasQuality = true
	}
	if rule.MaxSize != nil {
		eff.maxSize = *rule.MaxSize
	}
}

// materialize turns the merged fields into an ordered transform sequence.
func materialize(kind types.AssetKind, eff effective) types.Pipeline {
	p := types.Pipeline{Kind: kind}

	switch kind {
	case types.AssetKindImage:
		if eff.maxSize > 0 {
			p.Steps = append(p.Steps, types.Transform{
				Kind:   types.TransformResize,
				Resize: &types.ResizeParams{MaxSize: eff.maxSize},
			})
		}
		if eff.mipmap {
			p.Steps = append(p.Steps, types.Transform{
				Kind:        types.TransformGenerateMip,
				GenerateMip: &types.GenerateMipParams{},
			})
		}
		quality := 80
		if eff.hasQuality {
			quality = eff.quality
		}
		if eff.format != "" {
			p.Steps = append(p.Steps, types.Transform{
				Kind:   types.TransformEncode,
				Encode: &types.EncodeParams{Format: eff.format, Quality: quality},
			})
			p.OutputFormat = eff.format
		} else if eff.hasQuality {
			p.Steps = append(p.Steps, types.Transform{
				Kind:       types.TransformRecompress,
				Recompress: &types.RecompressParams{Quality: quality},
			})
		}
		p.Atlas = eff.atlas
		p.AtlasGroup = eff.atlasGroup
		p.TrimSprite = eff.trim

	case types.AssetKindAudio:
		if eff.normalize {
			p.Steps = append(p.Steps, types.Transform{
				Kind:      types.TransformNormalize,
				Normalize: &types.NormalizeParams{TargetPeak: 1.0},
			})
		}
		quality := 5
		if eff.hasQuality {
			quality = eff.quality
		}
		format := eff.format
		if format == "" {
			format = "ogg"
		}
		p.Steps = append(p.Steps, types.Transform{
			Kind:   types.TransformEncode,
			Encode: &types.EncodeParams{Format: format, Quality: quality},
		})
		p.OutputFormat = format

	case types.AssetKindModel:
		if eff.meshopt || eff.draco {
			p.Steps = append(p.Steps, types.Transform{
				Kind:           types.TransformBufferCompress,
				BufferCompress: &types.BufferCompressParams{},
			})
		}
		p.Steps = append(p.Steps, types.Transform{
			Kind:   types.TransformEncode,
			Encode: &types.EncodeParams{Format: eff.format},
		})
		p.OutputFormat = eff.format
	}

	return p
}
