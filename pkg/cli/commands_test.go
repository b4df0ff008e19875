package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/assetforge/assetforge/pkg/config"
	"github.com/assetforge/assetforge/pkg/rules"
	"github.com/assetforge/assetforge/pkg/types"
)

func TestRelToSource(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "assets")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"direct child", filepath.Join(source, "hero.png"), "hero.png"},
		{"nested", filepath.Join(source, "textures", "wall.png"), "textures/wall.png"},
		{"deeply nested", filepath.Join(source, "ui", "icons", "save.png"), "ui/icons/save.png"},
		{"outside source", filepath.Join(root, "other", "stray.png"), "stray.png"},
		{"sibling of source", filepath.Join(root, "assets-old", "relic.png"), "relic.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relToSource(source, tt.path); got != tt.want {
				t.Errorf("relToSource(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// Directory-scoped rule patterns only match source-relative paths, so
// the info command must not resolve against the bare file name.
func TestInfoResolvesDirectoryScopedRule(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "assets")
	path := filepath.Join(source, "textures", "wall.png")

	cfg := config.Default()
	cfg.Rules = []types.RuleConfig{
		{Pattern: "textures/*.png", Format: strp("webp")},
	}

	engine, err := rules.NewEngine(cfg, "")
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	if p := engine.Resolve(filepath.Base(path)); !p.IsNoop() {
		t.Fatal("bare file name should not match the directory-scoped rule")
	}

	pipeline := engine.Resolve(relToSource(source, path))
	if pipeline.IsNoop() {
		t.Fatal("source-relative path did not match the directory-scoped rule")
	}
	if pipeline.OutputFormat != "webp" {
		t.Errorf("resolved format %q, want webp", pipeline.OutputFormat)
	}
}

func TestConfigDirFindsProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "assets", "textures")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(config.DefaultTOML()), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if got := configDir(nested); got != root {
		t.Errorf("configDir(%q) = %q, want %q", nested, got, root)
	}
}

func strp(s string) *string { return &s }
