package raster

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"floeseg/internal/models"
)

// TestRGBRoundTrip verifies a three band raster survives encoding
func TestRGBRoundTrip(t *testing.T) {
	// Create test data
	r := models.NewRaster(4, 3, 3)
	for b := range r.Bands {
		for i := range r.Bands[b] {
			r.Bands[b][i] = uint8(10*b + i)
		}
	}

	path := filepath.Join(t.TempDir(), "rgb.tif")
	if err := WriteRaster(path, r); err != nil {
		t.Fatalf("Failed to write raster: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Failed to read raster: %v", err)
	}

	if got.Width != 4 || got.Height != 3 || len(got.Bands) != 3 {
		t.Fatalf("Expected 4x3x3, got %dx%dx%d", got.Width, got.Height, len(got.Bands))
	}
	for b := range r.Bands {
		if !bytes.Equal(r.Bands[b], got.Bands[b]) {
			t.Errorf("Band %d mismatch: expected %v, got %v", b, r.Bands[b], got.Bands[b])
		}
	}
	if got.Profile.Path != path {
		t.Errorf("Expected profile path %s, got %s", path, got.Profile.Path)
	}
}

func TestMaskRoundTrip(t *testing.T) {
	m := models.NewMask(3, 2)
	m.Set(1, 0, true)
	m.Set(2, 1, true)

	path := filepath.Join(t.TempDir(), "mask.tif")
	if err := WriteMask(path, m); err != nil {
		t.Fatalf("Failed to write mask: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Failed to read mask: %v", err)
	}
	if len(got.Bands) != 1 {
		t.Fatalf("Expected a single band, got %d", len(got.Bands))
	}
	want := []uint8{0, 1, 0, 0, 0, 1}
	if !bytes.Equal(want, got.Bands[0]) {
		t.Errorf("Expected %v, got %v", want, got.Bands[0])
	}
}

func TestLabelImageSampleSize(t *testing.T) {
	small := models.LabelImageFromRows([][]int32{{0, 255}})
	img, err := LabelImage(small, false)
	if err != nil {
		t.Fatalf("LabelImage failed: %v", err)
	}
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("Expected 8-bit image for labels up to 255, got %T", img)
	}

	large := models.LabelImageFromRows([][]int32{{0, 256, 65535}})
	img, err = LabelImage(large, false)
	if err != nil {
		t.Fatalf("LabelImage failed: %v", err)
	}
	g16, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("Expected 16-bit image for labels above 255, got %T", img)
	}
	if g16.Gray16At(1, 0).Y != 256 || g16.Gray16At(2, 0).Y != 65535 {
		t.Errorf("Unexpected 16-bit values %v %v", g16.Gray16At(1, 0), g16.Gray16At(2, 0))
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := tiff.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v := decoded.(*image.Gray16).Gray16At(1, 0).Y; v != 256 {
		t.Errorf("Expected 256 after round trip, got %d", v)
	}
}

func TestLabelImageRange(t *testing.T) {
	if _, err := LabelImage(models.LabelImageFromRows([][]int32{{65536}}), false); !errors.Is(err, ErrLabelRange) {
		t.Errorf("Expected ErrLabelRange, got %v", err)
	}

	negative := models.LabelImageFromRows([][]int32{{-1, 3}})
	if _, err := LabelImage(negative, false); err == nil {
		t.Errorf("Expected an error for negative labels")
	}
	img, err := LabelImage(negative, true)
	if err != nil {
		t.Fatalf("LabelImage with clamping failed: %v", err)
	}
	g := img.(*image.Gray)
	if g.Pix[0] != 0 || g.Pix[1] != 3 {
		t.Errorf("Expected [0 3], got %v", g.Pix)
	}
}

func TestFromImageDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	copy(img.Pix, []uint8{10, 20, 30, 0})
	r := FromImage(img)
	if len(r.Bands) != 3 || r.Bands[0][0] != 10 || r.Bands[1][0] != 20 || r.Bands[2][0] != 30 {
		t.Errorf("Unexpected bands %v", r.Bands)
	}
}

func TestToImageRejectsTwoBands(t *testing.T) {
	if _, err := ToImage(models.NewRaster(1, 1, 2)); err == nil {
		t.Errorf("Expected error for a two band raster")
	}
}
