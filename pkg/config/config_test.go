package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/assetforge/assetforge/pkg/config"
	"github.com/assetforge/assetforge/pkg/types"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "asset-forge.toml", `
[project]
name = "demo"
output = "./out"
source = "./assets"

[[rules]]
pattern = "sprites/*.png"
atlas = true
trim = true

[[rules]]
pattern = "audio/*.wav"
format = "ogg"
quality = 7

[cache]
enabled = true
directory = ".asset-forge-cache"
`)

	cfg, err := config.NewManager().Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Project.Name != "demo" {
		t.Errorf("project name = %q", cfg.Project.Name)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules))
	}
	if cfg.Rules[0].Pattern != "sprites/*.png" {
		t.Errorf("rule order not preserved: first pattern %q", cfg.Rules[0].Pattern)
	}
	if cfg.Rules[1].Quality == nil || *cfg.Rules[1].Quality != 7 {
		t.Error("rule quality not decoded")
	}
}

func TestLoadUnknownFieldIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "asset-forge.toml", `
[project]
name = "demo"
output = "./out"
source = "./assets"

[[rules]]
pattern = "sprites/*.png"
atlass = true
`)

	_, err := config.NewManager().Load(path)
	if err == nil {
		t.Fatal("expected error for unknown rule parameter")
	}
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestLoadYAMLFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "asset-forge.yaml", `
project:
  name: demo
  output: ./out
  source: ./assets
cache:
  enabled: true
  directory: .asset-forge-cache
`)

	cfg, err := config.NewManager().Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Project.Name != "demo" {
		t.Errorf("project name = %q", cfg.Project.Name)
	}
}

func TestLoadGarbageFails(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "asset-forge.toml", "{{{not a config")

	if _, err := config.NewManager().Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
	}{
		{"empty source", func(c *types.Config) { c.Project.Source = "" }},
		{"empty output", func(c *types.Config) { c.Project.Output = "" }},
		{"quality out of range", func(c *types.Config) {
			q := 150
			c.Rules = []types.RuleConfig{{Pattern: "*.png", Quality: &q}}
		}},
		{"empty rule pattern", func(c *types.Config) {
			c.Rules = []types.RuleConfig{{Pattern: "  "}}
		}},
		{"unknown format", func(c *types.Config) {
			f := "tiff"
			c.Rules = []types.RuleConfig{{Pattern: "*.png", Format: &f}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			if err := config.NewManager().Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultPresets(t *testing.T) {
	cfg := config.Default()

	for _, name := range []string{"mobile", "desktop", "web"} {
		preset, ok := cfg.Presets[name]
		if !ok {
			t.Fatalf("missing preset %q", name)
		}
		if preset.TextureMaxSize == nil || *preset.TextureMaxSize == 0 {
			t.Errorf("preset %q has no texture_max_size", name)
		}
	}

	mobile := cfg.Presets["mobile"]
	if *mobile.TextureMaxSize != 1024 || *mobile.TextureQuality != 75 {
		t.Error("mobile preset values drifted")
	}
	web := cfg.Presets["web"]
	if *web.TextureFormat != "webp" || *web.GenerateMipmaps {
		t.Error("web preset values drifted")
	}
}

func TestPresetUnknownName(t *testing.T) {
	_, err := config.Preset(config.Default(), "console")
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestFindAndLoadSearchesUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, config.FileName, `
[project]
name = "demo"
output = "./out"
source = "./assets"
`)
	nested := filepath.Join(root, "assets", "sprites")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, err := config.NewManager().FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if cfg == nil || cfg.Project.Name != "demo" {
		t.Error("expected to find config in ancestor directory")
	}
}

func TestFindAndLoadMissingIsNil(t *testing.T) {
	cfg, err := config.NewManager().FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if cfg != nil {
		t.Error("expected nil config when no file exists")
	}
}

func TestDefaultTOMLRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, config.FileName, config.DefaultTOML())

	cfg, err := config.NewManager().Load(path)
	if err != nil {
		t.Fatalf("generated default config does not load: %v", err)
	}
	if len(cfg.Presets) != 3 {
		t.Errorf("expected 3 presets in default config, got %d", len(cfg.Presets))
	}
}
