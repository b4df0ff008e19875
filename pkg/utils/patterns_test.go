package utils_test

import (
	"testing"

	"github.com/assetforge/assetforge/pkg/utils"
)

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"sprites/*.png", "sprites/hero.png", true},
		{"sprites/*.png", "sprites/sub/hero.png", false},
		{"sprites/**/*.png", "sprites/sub/hero.png", true},
		{"sprites/**/*.png", "sprites/a/b/c/hero.png", true},
		{"**/*.png", "hero.png", true},
		{"**/*.png", "deep/down/hero.png", true},
		{"*.png", "hero.png", true},
		{"*.png", "sprites/hero.png", false},
		{"audio/??.wav", "audio/ab.wav", true},
		{"audio/??.wav", "audio/abc.wav", false},
		{"textures/[abc]*.png", "textures/atlas.png", true},
		{"textures/[abc]*.png", "textures/dirt.png", false},
		{"models/*.gltf", "models/tree.glb", false},
	}

	for _, tt := range tests {
		got, err := utils.MatchGlob(tt.pattern, tt.path)
		if err != nil {
			t.Fatalf("MatchGlob(%q, %q) error: %v", tt.pattern, tt.path, err)
		}
		if got != tt.want {
			t.Errorf("MatchGlob(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestPatternMatcherMultiple(t *testing.T) {
	pm, err := utils.NewPatternMatcher([]string{"sprites/*.png", "audio/**/*.ogg"})
	if err != nil {
		t.Fatalf("NewPatternMatcher error: %v", err)
	}

	if !pm.Match("sprites/hero.png") {
		t.Error("expected sprites/hero.png to match")
	}
	if !pm.Match("audio/music/theme.ogg") {
		t.Error("expected audio/music/theme.ogg to match")
	}
	if pm.Match("models/tree.glb") {
		t.Error("models/tree.glb should not match")
	}
}

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"./sprites/*.png", "sprites/*.png"},
		{"sprites\\*.png", "sprites/*.png"},
		{"sprites/", "sprites"},
		{"sprites/*.png", "sprites/*.png"},
	}

	for _, tt := range tests {
		if got := utils.NormalizePattern(tt.in); got != tt.want {
			t.Errorf("NormalizePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsGlobPattern(t *testing.T) {
	if !utils.IsGlobPattern("sprites/*.png") {
		t.Error("expected wildcard pattern to be detected")
	}
	if utils.IsGlobPattern("sprites/hero.png") {
		t.Error("plain path should not be a glob pattern")
	}
}
