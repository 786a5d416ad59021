package watershed

import (
	"testing"

	"floeseg/internal/models"
)

// stepImage builds a 3-band raster whose columns >= edge are bright
func stepImage(w, h, edge int) *models.Raster {
	img := models.NewRaster(w, h, 3)
	for y := 0; y < h; y++ {
		for x := edge; x < w; x++ {
			for b := 0; b < 3; b++ {
				img.Bands[b][y*w+x] = 200
			}
		}
	}
	return img
}

func TestTransformFollowsIntensityEdge(t *testing.T) {
	w, h, edge := 12, 7, 5
	img := stepImage(w, h, edge)
	markers := models.NewLabelImage(w, h)
	markers.Pix[3*w+1] = 2
	markers.Pix[3*w+10] = 3

	out, err := Transform(img, markers)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := out.At(x, y)
			switch {
			case x < edge-1 && v != 2:
				t.Errorf("Expected dark pixel (%d,%d) in basin 2, got %d", x, y, v)
			case x > edge && v != 3:
				t.Errorf("Expected bright pixel (%d,%d) in basin 3, got %d", x, y, v)
			}
		}
	}
	for y := 1; y < h-1; y++ {
		left, right := out.At(edge-1, y), out.At(edge, y)
		if left == 3 || right == 2 {
			t.Errorf("Basins crossed the intensity edge on row %d: %d | %d", y, left, right)
		}
	}
}

func TestTransformMarksFrameAndRidges(t *testing.T) {
	w, h := 9, 5
	img := models.NewRaster(w, h, 3)
	markers := models.NewLabelImage(w, h)
	markers.Pix[2*w+1] = 2
	markers.Pix[2*w+7] = 3

	out, err := Transform(img, markers)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	for x := 0; x < w; x++ {
		if out.At(x, 0) != Ridge || out.At(x, h-1) != Ridge {
			t.Fatalf("Expected frame row pixels to be ridges at column %d", x)
		}
	}
	ridges := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			switch out.At(x, y) {
			case Ridge:
				ridges++
			case 0:
				t.Errorf("Pixel (%d,%d) was never flooded", x, y)
			}
		}
	}
	if ridges == 0 {
		t.Errorf("Expected a ridge between two basins on a flat image")
	}
}

func TestTransformKeepsSeeds(t *testing.T) {
	w, h := 6, 6
	img := stepImage(w, h, 3)
	markers := models.NewLabelImage(w, h)
	markers.Pix[2*w+2] = 4
	markers.Pix[3*w+3] = 4

	out, err := Transform(img, markers)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			if out.At(x, y) != 4 {
				t.Errorf("Expected single basin to cover (%d,%d), got %d", x, y, out.At(x, y))
			}
		}
	}
}

func TestTransformRejectsBadInput(t *testing.T) {
	if _, err := Transform(models.NewRaster(4, 4, 1), models.NewLabelImage(4, 4)); err == nil {
		t.Errorf("Expected an error for a single-band raster")
	}
	if _, err := Transform(models.NewRaster(4, 4, 3), models.NewLabelImage(5, 4)); err == nil {
		t.Errorf("Expected an error for mismatched shapes")
	}
}
