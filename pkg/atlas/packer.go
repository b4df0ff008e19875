// Package atlas bin-packs sprite images into fixed-size texture pages
package atlas

import (
	"image"
	"sort"

	"github.com/assetforge/assetforge/pkg/types"
)

// Sprite is one input image for packing.
type Sprite struct {
	ID    string
	Image image.Image
	// Trim crops the sprite to its opaque bounding box before packing.
	Trim bool
}

// Request is the full input set for one page.
type Request struct {
	Sprites []Sprite
}

// PackedRect is the placement of one sprite on the page. X/Y/W/H describe
// the placed (possibly trimmed) rect; TrimOffset and OriginalSize allow
// reconstructing the untrimmed sprite bounds at runtime.
type PackedRect struct {
	ID          string
	X, Y        int
	W, H        int
	TrimOffsetX int
	TrimOffsetY int
	OriginalW   int
	OriginalH   int
	Trimmed     bool
}

// Page is a packed atlas layout. Invariant: padded bounding boxes of the
// rects never overlap and every rect lies fully within the page bounds.
type Page struct {
	Width  int
	Height int
	Rects  []PackedRect
}

// Config bounds the packing.
type Config struct {
	MaxWidth  int
	MaxHeight int
	Padding   int
}

// DefaultConfig matches the CLI defaults.
func DefaultConfig() Config {
	return Config{MaxWidth: 2048, MaxHeight: 2048, Padding: 2}
}

type shelf struct {
	y      int
	height int
	nextX  int
}

// Pack places all sprites on a single page using a first-fit shelf
// heuristic: sprites are sorted by descending height (ties broken by
// descending width, then ID), each is placed on the first shelf with
// enough remaining width, and a new shelf opens below the lowest when
// none fits. Placement is axis-aligned; no rotation. The layout is
// deterministic for identical inputs.
//
// If the set cannot fit within the page bounds the packing fails with an
// AtlasOverflowError carrying the minimum page dimensions that would
// have been required; multi-page spill is deliberately unsupported.
func Pack(req Request, cfg Config) (*Page, error) {
	rects := make([]PackedRect, 0, len(req.Sprites))
	for _, sprite := range req.Sprites {
		rects = append(rects, measure(sprite))
	}

	sort.SliceStable(rects, func(i, j int) bool {
		if rects[i].H != rects[j].H {
			return rects[i].H > rects[j].H
		}
		if rects[i].W != rects[j].W {
			return rects[i].W > rects[j].W
		}
		return rects[i].ID < rects[j].ID
	})

	var shelves []shelf
	nextShelfY := 0

	// Pack with unbounded height first so overflow can report the
	// height the set actually needs.
	for i := range rects {
		r := &rects[i]
		placed := false

		for si := range shelves {
			s := &shelves[si]
			if r.H <= s.height && s.nextX+r.W <= cfg.MaxWidth {
				r.X = s.nextX
				r.Y = s.y
				s.nextX += r.W + cfg.Padding
				placed = true
				break
			}
		}

		if !placed {
			r.X = 0
			r.Y = nextShelfY
			shelves = append(shelves, shelf{
				y:      nextShelfY,
				height: r.H,
				nextX:  r.W + cfg.Padding,
			})
			nextShelfY += r.H + cfg.Padding
		}
	}

	width, height := 0, 0
	for _, r := range rects {
		if r.X+r.W > width {
			width = r.X + r.W
		}
		if r.Y+r.H > height {
			height = r.Y + r.H
		}
	}

	// Width can only exceed the bound via a single rect wider than the
	// page; the shelf loop respects MaxWidth otherwise.
	if width > cfg.MaxWidth || height > cfg.MaxHeight {
		return nil, &types.AtlasOverflowError{
			MaxWidth:       cfg.MaxWidth,
			MaxHeight:      cfg.MaxHeight,
			RequiredWidth:  width,
			RequiredHeight: height,
		}
	}

	return &Page{Width: width, Height: height, Rects: rects}, nil
}

// measure computes the packed dimensions of one sprite, applying the
// trim reduction when requested.
func measure(sprite Sprite) PackedRect {
	bounds := sprite.Image.Bounds()
	rect := PackedRect{
		ID:        sprite.ID,
		W:         bounds.Dx(),
		H:         bounds.Dy(),
		OriginalW: bounds.Dx(),
		OriginalH: bounds.Dy(),
	}

	if !sprite.Trim {
		return rect
	}

	trimmed := opaqueBounds(sprite.Image)
	if trimmed.Empty() {
		// Fully transparent sprites keep a 1x1 placeholder so their ID
		// survives into the metadata.
		trimmed = image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+1, bounds.Min.Y+1)
	}

	rect.W = trimmed.Dx()
	rect.H = trimmed.Dy()
	rect.TrimOffsetX = trimmed.Min.X - bounds.Min.X
	rect.TrimOffsetY = trimmed.Min.Y - bounds.Min.Y
	rect.Trimmed = rect.W != bounds.Dx() || rect.H != bounds.Dy()
	return rect
}

// opaqueBounds returns the tightest bounding box of pixels with nonzero
// alpha.
func opaqueBounds(img image.Image) image.Rectangle {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X, bounds.Min.Y

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x+1 > maxX {
				maxX = x + 1
			}
			if y+1 > maxY {
				maxY = y + 1
			}
		}
	}

	if minX >= maxX || minY >= maxY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX, maxY)
}
