// Package config handles configuration loading and management
package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/assetforge/assetforge/pkg/types"
	"github.com/assetforge/assetforge/pkg/utils"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file name.
const FileName = "asset-forge.toml"

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// Load reads and validates a configuration file. TOML is tried first;
// YAML is accepted as a fallback. Unknown keys are a ConfigError so that
// a rule referencing an unknown parameter fails fast.
func (m *Manager) Load(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewConfigError("failed to read config file %s: %v", path, err)
	}

	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	tomlErr := dec.Decode(cfg)
	if tomlErr == nil {
		return m.validate(cfg)
	}

	var strict *toml.StrictMissingError
	if errors.As(tomlErr, &strict) {
		return nil, types.NewConfigError("unknown field in %s: %v", path, strict)
	}

	// Fall back to YAML for projects that prefer it.
	cfg = Default()
	yamlDec := yaml.NewDecoder(bytes.NewReader(data))
	yamlDec.KnownFields(true)
	if yamlErr := yamlDec.Decode(cfg); yamlErr == nil {
		return m.validate(cfg)
	}

	return nil, types.NewConfigError("failed to parse %s as TOML or YAML: %v", path, tomlErr)
}

// Find searches dir and its parents for the default config file and
// returns its path, or "" when none exists.
func (m *Manager) Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(abs, FileName)
		if utils.FileExists(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil
		}
		abs = parent
	}
}

// FindAndLoad searches dir and its parents for the default config file.
// A missing config is not an error; the returned config is then nil.
func (m *Manager) FindAndLoad(dir string) (*types.Config, error) {
	path, err := m.Find(dir)
	if err != nil || path == "" {
		return nil, err
	}
	return m.Load(path)
}

// Validate checks a configuration for fatal problems.
func (m *Manager) Validate(cfg *types.Config) error {
	if cfg.Project.Source == "" {
		return types.NewConfigError("project.source must not be empty")
	}
	if cfg.Project.Output == "" {
		return types.NewConfigError("project.output must not be empty")
	}

	for name, preset := range cfg.Presets {
		if err := validatePreset(name, preset); err != nil {
			return err
		}
	}

	for i, rule := range cfg.Rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			return types.NewConfigError("rule %d: missing pattern", i)
		}
		if _, err := utils.MatchGlob(rule.Pattern, "probe"); err != nil {
			return types.NewConfigError("rule %d: invalid pattern %q: %v", i, rule.Pattern, err)
		}
		if rule.Quality != nil && (*rule.Quality < 0 || *rule.Quality > 100) {
			return types.NewConfigError("rule %q: quality must be 0-100, got %d", rule.Pattern, *rule.Quality)
		}
		if rule.Format != nil && !validTextureFormat(*rule.Format) && !validAudioFormat(*rule.Format) {
			return types.NewConfigError("rule %q: unknown format %q", rule.Pattern, *rule.Format)
		}
	}

	return nil
}

// Preset returns the named preset, or a ConfigError if it does not exist.
func Preset(cfg *types.Config, name string) (types.PresetConfig, error) {
	if name == "" {
		return types.PresetConfig{}, nil
	}
	if cfg != nil {
		if preset, ok := cfg.Presets[name]; ok {
			return preset, nil
		}
	}
	if preset, ok := Default().Presets[name]; ok {
		return preset, nil
	}
	return types.PresetConfig{}, types.NewConfigError("unknown preset: %s", name)
}

// Default returns the built-in configuration with the standard platform
// presets.
func Default() *types.Config {
	return &types.Config{
		Project: types.ProjectConfig{
			Name:   "my-game",
			Output: "./build/assets",
			Source: "./assets",
		},
		Presets: map[string]types.PresetConfig{
			"mobile": {
				TextureMaxSize:   intp(1024),
				TextureFormat:    strp("png"),
				TextureQuality:   intp(75),
				AudioFormat:      strp("ogg"),
				AudioQuality:     intp(6),
				CompressTextures: boolp(true),
				GenerateMipmaps:  boolp(true),
			},
			"desktop": {
				TextureMaxSize:   intp(4096),
				TextureFormat:    strp("png"),
				TextureQuality:   intp(90),
				AudioFormat:      strp("wav"),
				AudioQuality:     intp(10),
				CompressTextures: boolp(false),
				GenerateMipmaps:  boolp(true),
			},
			"web": {
				TextureMaxSize:   intp(2048),
				TextureFormat:    strp("webp"),
				TextureQuality:   intp(80),
				AudioFormat:      strp("ogg"),
				AudioQuality:     intp(7),
				CompressTextures: boolp(true),
				GenerateMipmaps:  boolp(false),
			},
		},
		Cache: types.CacheConfig{
			Enabled:   true,
			Directory: ".asset-forge-cache",
		},
	}
}

// DefaultTOML returns the commented configuration written by `init`.
func DefaultTOML() string {
	return `[project]
name = "my-game"
output = "./build/assets"
source = "./assets"

[presets.mobile]
texture_max_size = 1024
texture_format = "png"
texture_quality = 75
audio_format = "ogg"
audio_quality = 6
compress_textures = true
generate_mipmaps = true

[presets.desktop]
texture_max_size = 4096
texture_format = "png"
texture_quality = 90
audio_format = "wav"
audio_quality = 10
compress_textures = false
generate_mipmaps = true

[presets.web]
texture_max_size = 2048
texture_format = "webp"
texture_quality = 80
audio_format = "ogg"
audio_quality = 7
compress_textures = true
generate_mipmaps = false

# Rules are evaluated in order; the last matching rule wins field by field.
#
# [[rules]]
# pattern = "sprites/*.png"
# atlas = true
# trim = true
#
# [[rules]]
# pattern = "textures/*.png"
# format = "png"
# mipmap = true
#
# [[rules]]
# pattern = "models/*.gltf"
# meshopt = true
#
# [[rules]]
# pattern = "audio/*.wav"
# format = "ogg"
# normalize = true

[cache]
enabled = true
directory = ".asset-forge-cache"
`
}

// Private methods

func (m *Manager) validate(cfg *types.Config) (*types.Config, error) {
	if err := m.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validatePreset(name string, preset types.PresetConfig) error {
	if preset.TextureQuality != nil && (*preset.TextureQuality < 0 || *preset.TextureQuality > 100) {
		return types.NewConfigError("preset %q: texture_quality must be 0-100", name)
	}
	if preset.AudioQuality != nil && (*preset.AudioQuality < 0 || *preset.AudioQuality > 10) {
		return types.NewConfigError("preset %q: audio_quality must be 0-10", name)
	}
	if preset.TextureFormat != nil && !validTextureFormat(*preset.TextureFormat) {
		return types.NewConfigError("preset %q: unknown texture_format %q", name, *preset.TextureFormat)
	}
	if preset.AudioFormat != nil && !validAudioFormat(*preset.AudioFormat) {
		return types.NewConfigError("preset %q: unknown audio_format %q", name, *preset.AudioFormat)
	}
	return nil
}

func validTextureFormat(format string) bool {
	switch format {
	case "png", "jpg", "jpeg", "webp", "ktx2":
		return true
	}
	return false
}

func validAudioFormat(format string) bool {
	switch format {
	case "ogg", "wav":
		return true
	}
	return false
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }
