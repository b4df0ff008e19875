package types

// Config is the root schema of asset-forge.toml.
type Config struct {
	Project ProjectConfig           `toml:"project" yaml:"project" json:"project"`
	Presets map[string]PresetConfig `toml:"presets" yaml:"presets" json:"presets"`
	Rules   []RuleConfig            `toml:"rules" yaml:"rules" json:"rules"`
	Cache   CacheConfig             `toml:"cache" yaml:"cache" json:"cache"`
}

// ProjectConfig holds project metadata and directory layout.
type ProjectConfig struct {
	Name   string `toml:"name" yaml:"name" json:"name"`
	Output string `toml:"output" yaml:"output" json:"output"`
	Source string `toml:"source" yaml:"source" json:"source"`
}

// PresetConfig is a named platform preset. Nil fields mean "not set" and
// fall through to format-inferred defaults during rule resolution.
type PresetConfig struct {
	TextureMaxSize   *int    `toml:"texture_max_size" yaml:"texture_max_size" json:"textureMaxSize,omitempty"`
	TextureFormat    *string `toml:"texture_format" yaml:"texture_format" json:"textureFormat,omitempty"`
	TextureQuality   *int    `toml:"texture_quality" yaml:"texture_quality" json:"textureQuality,omitempty"`
	AudioFormat      *string `toml:"audio_format" yaml:"audio_format" json:"audioFormat,omitempty"`
	AudioQuality     *int    `toml:"audio_quality" yaml:"audio_quality" json:"audioQuality,omitempty"`
	CompressTextures *bool   `toml:"compress_textures" yaml:"compress_textures" json:"compressTextures,omitempty"`
	GenerateMipmaps  *bool   `toml:"generate_mipmaps" yaml:"generate_mipmaps" json:"generateMipmaps,omitempty"`
}

// RuleConfig binds a glob pattern to a partial pipeline override. Rules are
// declared as an ordered array ([[rules]]) so that later matches override
// earlier ones field by field.
type RuleConfig struct {
	Pattern   string  `toml:"pattern" yaml:"pattern" json:"pattern"`
	Format    *string `toml:"format" yaml:"format" json:"format,omitempty"`
	Atlas     *bool   `toml:"atlas" yaml:"atlas" json:"atlas,omitempty"`
	Trim      *bool   `toml:"trim" yaml:"trim" json:"trim,omitempty"`
	Mipmap    *bool   `toml:"mipmap" yaml:"mipmap" json:"mipmap,omitempty"`
	Draco     *bool   `toml:"draco" yaml:"draco" json:"draco,omitempty"`
	Meshopt   *bool   `toml:"meshopt" yaml:"meshopt" json:"meshopt,omitempty"`
	Normalize *bool   `toml:"normalize" yaml:"normalize" json:"normalize,omitempty"`
	Quality   *int    `toml:"quality" yaml:"quality" json:"quality,omitempty"`
	MaxSize   *int    `toml:"max_size" yaml:"max_size" json:"maxSize,omitempty"`
}

// CacheConfig controls the incremental build cache.
type CacheConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Directory string `toml:"directory" yaml:"directory" json:"directory"`
}
