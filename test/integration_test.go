//go:build integration
// +build integration

package integration_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/assetforge/assetforge/internal/engine"
	"github.com/assetforge/assetforge/pkg/config"
	"github.com/assetforge/assetforge/pkg/logger"
	"github.com/assetforge/assetforge/pkg/utils"
)

// TestEndToEndBuild runs the full pipeline against a real config file:
// initial build, cached rebuild, selective invalidation after one source
// change, and a cache purge forcing a complete rebuild.
func TestEndToEndBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := t.TempDir()

	// Lay out a small project with a real config file.
	configPath := filepath.Join(root, config.FileName)
	err := os.WriteFile(configPath, []byte(`
[project]
name = "integration"
output = "./build"
source = "./assets"

[[rules]]
pattern = "textures/*.png"
format = "png"
quality = 90

[[rules]]
pattern = "sprites/*.png"
atlas = true
trim = true

[[rules]]
pattern = "audio/*.wav"
format = "ogg"

[cache]
enabled = true
directory = ".asset-forge-cache"
`), 0644)
	if err != nil {
		t.Fatalf("write config: %v", err)
	}

	for _, dir := range []string{"assets/textures", "assets/sprites", "assets/audio"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	writePNG(t, filepath.Join(root, "assets/textures/wall.png"), 32, 32)
	writePNG(t, filepath.Join(root, "assets/sprites/hero.png"), 16, 16)
	writePNG(t, filepath.Join(root, "assets/sprites/enemy.png"), 16, 16)
	if err := os.WriteFile(filepath.Join(root, "assets/audio/theme.wav"), []byte("RIFF theme"), 0644); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	cfg, err := config.NewManager().Load(configPath)
	if err != nil {
		t.Fatalf("Load config: %v", err)
	}

	build := func() (built, cached int) {
		t.Helper()
		log := logger.CreateLoggerWithOutput("error", os.Stderr)
		forge, err := engine.New(cfg, root, "", engine.Options{}, log)
		if err != nil {
			t.Fatalf("engine.New: %v", err)
		}
		report, err := forge.Build(context.Background())
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if failed := report.Failed(); len(failed) > 0 {
			t.Fatalf("failed jobs: %+v", failed)
		}
		b, c, _, _ := report.Counts()
		return b, c
	}

	// Initial build: texture + audio + one atlas group.
	if built, _ := build(); built != 3 {
		t.Fatalf("initial build: built %d jobs, want 3", built)
	}
	for _, out := range []string{"build/textures/wall.png", "build/audio/theme.ogg"} {
		if !utils.FileExists(filepath.Join(root, out)) {
			t.Errorf("missing output %s", out)
		}
	}

	// Rebuild without changes: everything cached.
	if built, cached := build(); built != 0 || cached != 3 {
		t.Fatalf("idempotent rebuild: built=%d cached=%d, want 0/3", built, cached)
	}

	// Touch one sprite: only its atlas group rebuilds.
	writePNG(t, filepath.Join(root, "assets/sprites/hero.png"), 24, 24)
	if built, cached := build(); built != 1 || cached != 2 {
		t.Fatalf("selective invalidation: built=%d cached=%d, want 1/2", built, cached)
	}

	// Purge the cache: the next build misses everything.
	if err := os.RemoveAll(filepath.Join(root, ".asset-forge-cache")); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if built, cached := build(); built != 3 || cached != 0 {
		t.Fatalf("after purge: built=%d cached=%d, want 3/0", built, cached)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 140, A: 255})
		}
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}
