package processors

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"github.com/assetforge/assetforge/pkg/types"
)

// ImageProcessor handles resize and re-encode steps on the stdlib image
// stack. Formats without a stdlib encoder (webp, ktx2) fall back to PNG
// bytes; the real codecs sit outside this boundary.
type ImageProcessor struct{}

// NewImageProcessor returns the built-in image processor.
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{}
}

// Kind implements Processor.
func (p *ImageProcessor) Kind() types.AssetKind { return types.AssetKindImage }

// Process decodes the input once, applies the steps in order, and encodes
// the result according to the final encode step. With no encode step the
// image is re-encoded as PNG.
func (p *ImageProcessor) Process(ctx context.Context, input []byte, pipeline types.Pipeline) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, &types.ProcessorError{Step: "decode", Err: err}
	}

	format := "png"
	quality := 80

	for _, step := range pipeline.Steps {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		switch step.Kind {
		case types.TransformResize:
			img = resizeToFit(img, step.Resize.MaxSize)
		case types.TransformEncode:
			format = step.Encode.Format
			if step.Encode.Quality > 0 {
				quality = step.Encode.Quality
			}
		case types.TransformRecompress:
			if step.Recompress.Quality > 0 {
				quality = step.Recompress.Quality
			}
		case types.TransformGenerateMip:
			// Mip chains need a container format; the base level is all
			// the stdlib encoders can carry.
		default:
			return nil, &types.ProcessorError{
				Step: step.Kind,
				Err:  fmt.Errorf("unsupported image transform"),
			}
		}
	}

	return encodeImage(img, format, quality)
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "jpg", "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, &types.ProcessorError{Step: "encode", Err: err}
		}
	default:
		// png, and the PNG stand-in for webp/ktx2.
		if err := png.Encode(&buf, img); err != nil {
			return nil, &types.ProcessorError{Step: "encode", Err: err}
		}
	}

	return buf.Bytes(), nil
}

// resizeToFit scales the image down so neither dimension exceeds maxSize,
// preserving aspect ratio. Images already within bounds pass through.
func resizeToFit(img image.Image, maxSize int) image.Image {
	if maxSize <= 0 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSize && h <= maxSize {
		return img
	}

	newW, newH := w, h
	if w >= h {
		newW = maxSize
		newH = h * maxSize / w
	} else {
		newH = maxSize
		newW = w * maxSize / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}
