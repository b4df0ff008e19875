package atlas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Register decoders for the sprite formats we accept as input.
	_ "image/gif"
	_ "image/jpeg"

	"github.com/assetforge/assetforge/pkg/utils"
)

// Frame is the runtime lookup record for one sprite in the metadata file.
type Frame struct {
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Trimmed *TrimInfo `json:"trimmed,omitempty"`
}

// TrimInfo restores the untrimmed sprite bounds at runtime.
type TrimInfo struct {
	OffsetX        int `json:"offsetX"`
	OffsetY        int `json:"offsetY"`
	OriginalWidth  int `json:"originalWidth"`
	OriginalHeight int `json:"originalHeight"`
}

// Metadata is the sidecar JSON written next to every atlas page.
type Metadata struct {
	Image  string           `json:"image"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Frames map[string]Frame `json:"frames"`
}

// Result describes one written atlas page.
type Result struct {
	ImagePath    string
	MetadataPath string
	Page         *Page
}

// Builder packs sprites and writes the page image plus metadata.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder with the given packing bounds.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// LoadSprite decodes one sprite image from disk. The sprite ID is the
// file name without extension.
func LoadSprite(path string, trim bool) (Sprite, error) {
	file, err := os.Open(path)
	if err != nil {
		return Sprite{}, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return Sprite{}, fmt.Errorf("decode %s: %w", path, err)
	}

	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	return Sprite{ID: id, Image: img, Trim: trim}, nil
}

// Build packs the sprites, composites the page, and writes both the PNG
// and its metadata sidecar atomically. outputPath names the page image;
// the metadata lands next to it with a .json extension.
func (b *Builder) Build(sprites []Sprite, outputPath string) (*Result, error) {
	page, err := Pack(Request{Sprites: sprites}, b.cfg)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, page.Width, page.Height))
	byID := make(map[string]Sprite, len(sprites))
	for _, sprite := range sprites {
		byID[sprite.ID] = sprite
	}

	for _, rect := range page.Rects {
		sprite, ok := byID[rect.ID]
		if !ok {
			continue
		}
		src := sprite.Image.Bounds()
		srcOrigin := image.Pt(src.Min.X+rect.TrimOffsetX, src.Min.Y+rect.TrimOffsetY)
		dst := image.Rect(rect.X, rect.Y, rect.X+rect.W, rect.Y+rect.H)
		draw.Draw(canvas, dst, sprite.Image, srcOrigin, draw.Src)
	}

	imageData, err := encodePNG(canvas)
	if err != nil {
		return nil, err
	}
	if err := utils.WriteFileAtomic(outputPath, imageData); err != nil {
		return nil, err
	}

	metadataPath := metadataPathFor(outputPath)
	metadata := buildMetadata(filepath.Base(outputPath), page)
	metadataData, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := utils.WriteFileAtomic(metadataPath, metadataData); err != nil {
		return nil, err
	}

	return &Result{ImagePath: outputPath, MetadataPath: metadataPath, Page: page}, nil
}

// SortSprites orders sprites by ID so group hashes and layouts are stable
// regardless of directory enumeration order.
func SortSprites(sprites []Sprite) {
	sort.Slice(sprites, func(i, j int) bool { return sprites[i].ID < sprites[j].ID })
}

func buildMetadata(imageName string, page *Page) Metadata {
	frames := make(map[string]Frame, len(page.Rects))
	for _, rect := range page.Rects {
		frame := Frame{X: rect.X, Y: rect.Y, Width: rect.W, Height: rect.H}
		if rect.Trimmed {
			frame.Trimmed = &TrimInfo{
				OffsetX:        rect.TrimOffsetX,
				OffsetY:        rect.TrimOffsetY,
				OriginalWidth:  rect.OriginalW,
				OriginalHeight: rect.OriginalH,
			}
		}
		frames[rect.ID] = frame
	}
	return Metadata{
		Image:  imageName,
		Width:  page.Width,
		Height: page.Height,
		Frames: frames,
	}
}

func metadataPathFor(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".json"
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
