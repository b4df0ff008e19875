package processors_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/assetforge/assetforge/pkg/processors"
	"github.com/assetforge/assetforge/pkg/types"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestRegistryCoversAllKinds(t *testing.T) {
	registry := processors.NewRegistry()
	for _, kind := range []types.AssetKind{
		types.AssetKindImage, types.AssetKindModel, types.AssetKindAudio,
	} {
		if registry.For(kind) == nil {
			t.Errorf("no processor registered for %v", kind)
		}
	}
	if registry.For(types.AssetKindUnknown) != nil {
		t.Error("unknown kind should have no processor")
	}
}

func TestImageResize(t *testing.T) {
	input := encodeTestPNG(t, 64, 32)

	proc := processors.NewImageProcessor()
	out, err := proc.Process(context.Background(), input, types.Pipeline{
		Kind: types.AssetKindImage,
		Steps: []types.Transform{
			{Kind: types.TransformResize, Resize: &types.ResizeParams{MaxSize: 16}},
			{Kind: types.TransformEncode, Encode: &types.EncodeParams{Format: "png", Quality: 80}},
		},
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("resized to %dx%d, want 16x8 (aspect preserved)",
			img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestImageResizeNoUpscale(t *testing.T) {
	input := encodeTestPNG(t, 10, 10)

	proc := processors.NewImageProcessor()
	out, err := proc.Process(context.Background(), input, types.Pipeline{
		Kind: types.AssetKindImage,
		Steps: []types.Transform{
			{Kind: types.TransformResize, Resize: &types.ResizeParams{MaxSize: 100}},
		},
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Errorf("small image was scaled to %d, want unchanged", img.Bounds().Dx())
	}
}

func TestImageEncodeJPEG(t *testing.T) {
	input := encodeTestPNG(t, 8, 8)

	proc := processors.NewImageProcessor()
	out, err := proc.Process(context.Background(), input, types.Pipeline{
		Kind: types.AssetKindImage,
		Steps: []types.Transform{
			{Kind: types.TransformEncode, Encode: &types.EncodeParams{Format: "jpg", Quality: 70}},
		},
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	// JPEG SOI marker.
	if len(out) < 2 || out[0] != 0xFF || out[1] != 0xD8 {
		t.Error("output is not a JPEG stream")
	}
}

func TestImageRejectsGarbage(t *testing.T) {
	proc := processors.NewImageProcessor()
	_, err := proc.Process(context.Background(), []byte("not an image"), types.Pipeline{
		Kind: types.AssetKindImage,
	})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAudioPassthrough(t *testing.T) {
	input := []byte("RIFF fake wav payload")

	proc := processors.NewAudioProcessor()
	out, err := proc.Process(context.Background(), input, types.Pipeline{
		Kind: types.AssetKindAudio,
		Steps: []types.Transform{
			{Kind: types.TransformNormalize, Normalize: &types.NormalizeParams{TargetPeak: 1.0}},
			{Kind: types.TransformEncode, Encode: &types.EncodeParams{Format: "ogg", Quality: 5}},
		},
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Error("audio passthrough modified the byte stream")
	}
}

func TestModelPassthrough(t *testing.T) {
	input := []byte("glTF fake payload")

	proc := processors.NewModelProcessor()
	out, err := proc.Process(context.Background(), input, types.Pipeline{
		Kind: types.AssetKindModel,
		Steps: []types.Transform{
			{Kind: types.TransformBufferCompress, BufferCompress: &types.BufferCompressParams{}},
			{Kind: types.TransformEncode, Encode: &types.EncodeParams{Format: "glb"}},
		},
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Error("model passthrough modified the byte stream")
	}
}

func TestModelRejectsForeignStep(t *testing.T) {
	proc := processors.NewModelProcessor()
	_, err := proc.Process(context.Background(), []byte("glb"), types.Pipeline{
		Kind: types.AssetKindModel,
		Steps: []types.Transform{
			{Kind: types.TransformResize, Resize: &types.ResizeParams{MaxSize: 10}},
		},
	})
	if err == nil {
		t.Fatal("expected error for image step in model pipeline")
	}
	var procErr *types.ProcessorError
	if !errors.As(err, &procErr) {
		t.Errorf("expected ProcessorError, got %T", err)
	}
}
