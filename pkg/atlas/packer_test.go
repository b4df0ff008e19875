package atlas_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/assetforge/assetforge/pkg/atlas"
	"github.com/assetforge/assetforge/pkg/types"
)

// solidSprite returns a fully opaque sprite of the given size.
func solidSprite(id string, w, h int) atlas.Sprite {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return atlas.Sprite{ID: id, Image: img}
}

func TestPackSmallSet(t *testing.T) {
	sprites := []atlas.Sprite{
		solidSprite("small", 16, 16),
		solidSprite("medium", 32, 32),
		solidSprite("large", 64, 64),
	}

	page, err := atlas.Pack(atlas.Request{Sprites: sprites}, atlas.Config{
		MaxWidth: 128, MaxHeight: 128, Padding: 2,
	})
	if err != nil {
		t.Fatalf("Pack error: %v", err)
	}

	if len(page.Rects) != 3 {
		t.Fatalf("placed %d rects, want 3", len(page.Rects))
	}
	if page.Width > 128 || page.Height > 128 {
		t.Errorf("page %dx%d exceeds bounds", page.Width, page.Height)
	}

	assertNoOverlap(t, page, 2)
	assertWithinBounds(t, page)
}

func TestPackOverflow(t *testing.T) {
	sprites := []atlas.Sprite{
		solidSprite("a", 100, 100),
		solidSprite("b", 100, 100),
	}

	_, err := atlas.Pack(atlas.Request{Sprites: sprites}, atlas.Config{
		MaxWidth: 128, MaxHeight: 128, Padding: 2,
	})
	if err == nil {
		t.Fatal("expected overflow error")
	}

	var overflow *types.AtlasOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected AtlasOverflowError, got %T: %v", err, err)
	}
	if overflow.RequiredHeight <= 128 {
		t.Errorf("required height %d should exceed the page bound", overflow.RequiredHeight)
	}
}

func TestPackOverflowWidth(t *testing.T) {
	sprites := []atlas.Sprite{
		solidSprite("banner", 200, 10),
	}

	_, err := atlas.Pack(atlas.Request{Sprites: sprites}, atlas.Config{
		MaxWidth: 128, MaxHeight: 128, Padding: 2,
	})
	if err == nil {
		t.Fatal("sprite wider than the page must not pack")
	}

	var overflow *types.AtlasOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected AtlasOverflowError, got %T: %v", err, err)
	}
	if overflow.RequiredWidth < 200 {
		t.Errorf("required width %d should cover the widest sprite", overflow.RequiredWidth)
	}
}

func TestPackDeterministic(t *testing.T) {
	pack := func(order []string) *atlas.Page {
		dims := map[string][2]int{
			"a": {32, 32}, "b": {32, 32}, "c": {48, 16}, "d": {16, 48},
		}
		var sprites []atlas.Sprite
		for _, id := range order {
			d := dims[id]
			sprites = append(sprites, solidSprite(id, d[0], d[1]))
		}
		page, err := atlas.Pack(atlas.Request{Sprites: sprites}, atlas.DefaultConfig())
		if err != nil {
			t.Fatalf("Pack error: %v", err)
		}
		return page
	}

	first := pack([]string{"a", "b", "c", "d"})
	second := pack([]string{"d", "c", "b", "a"})

	pos := func(page *atlas.Page) map[string][2]int {
		m := make(map[string][2]int)
		for _, r := range page.Rects {
			m[r.ID] = [2]int{r.X, r.Y}
		}
		return m
	}

	p1, p2 := pos(first), pos(second)
	for id, xy := range p1 {
		if p2[id] != xy {
			t.Errorf("sprite %q placed at %v and %v for different input orders", id, xy, p2[id])
		}
	}
}

func TestPackTrim(t *testing.T) {
	// 16x16 canvas with opaque pixels only in (4,5)-(9,11).
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 5; y < 12; y++ {
		for x := 4; x < 10; x++ {
			img.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}

	page, err := atlas.Pack(atlas.Request{
		Sprites: []atlas.Sprite{{ID: "leaf", Image: img, Trim: true}},
	}, atlas.DefaultConfig())
	if err != nil {
		t.Fatalf("Pack error: %v", err)
	}

	rect := page.Rects[0]
	if rect.W != 6 || rect.H != 7 {
		t.Errorf("trimmed to %dx%d, want 6x7", rect.W, rect.H)
	}
	if rect.TrimOffsetX != 4 || rect.TrimOffsetY != 5 {
		t.Errorf("trim offset (%d,%d), want (4,5)", rect.TrimOffsetX, rect.TrimOffsetY)
	}
	if rect.OriginalW != 16 || rect.OriginalH != 16 {
		t.Errorf("original size %dx%d, want 16x16", rect.OriginalW, rect.OriginalH)
	}
	if !rect.Trimmed {
		t.Error("rect should be marked trimmed")
	}
}

func TestPackFullyTransparentSprite(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	page, err := atlas.Pack(atlas.Request{
		Sprites: []atlas.Sprite{{ID: "ghost", Image: img, Trim: true}},
	}, atlas.DefaultConfig())
	if err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	if len(page.Rects) != 1 {
		t.Fatal("transparent sprite must keep its metadata entry")
	}
	if page.Rects[0].W != 1 || page.Rects[0].H != 1 {
		t.Errorf("transparent sprite packed as %dx%d, want 1x1", page.Rects[0].W, page.Rects[0].H)
	}
}

func assertNoOverlap(t *testing.T, page *atlas.Page, padding int) {
	t.Helper()
	for i := 0; i < len(page.Rects); i++ {
		for j := i + 1; j < len(page.Rects); j++ {
			a, b := page.Rects[i], page.Rects[j]
			if a.X < b.X+b.W+padding && b.X < a.X+a.W+padding &&
				a.Y < b.Y+b.H+padding && b.Y < a.Y+a.H+padding {
				t.Errorf("rects %q and %q violate padding %d", a.ID, b.ID, padding)
			}
		}
	}
}

func assertWithinBounds(t *testing.T, page *atlas.Page) {
	t.Helper()
	for _, r := range page.Rects {
		if r.X < 0 || r.Y < 0 || r.X+r.W > page.Width || r.Y+r.H > page.Height {
			t.Errorf("rect %q (%d,%d %dx%d) outside page %dx%d",
				r.ID, r.X, r.Y, r.W, r.H, page.Width, page.Height)
		}
	}
}
