package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"floeseg/internal/models"
	"floeseg/pkg/config"
	"floeseg/pkg/morphology"
	"floeseg/pkg/raster"
	"floeseg/pkg/scene"
	"floeseg/pkg/threshold"
)

const (
	testWidth  = 64
	testHeight = 48
)

// writeScene writes a dark true-color scene with two bright square floes
// and an empty cloud raster.
func writeScene(t *testing.T, tciPath, cloudPath string) {
	t.Helper()

	rgb := models.NewRaster(testWidth, testHeight, 3)
	for b := range rgb.Bands {
		for i := range rgb.Bands[b] {
			rgb.Bands[b][i] = 30
		}
	}
	for _, sq := range [][4]int{{5, 5, 16, 16}, {30, 20, 45, 35}} {
		for y := sq[1]; y <= sq[3]; y++ {
			for x := sq[0]; x <= sq[2]; x++ {
				for b := range rgb.Bands {
					rgb.Bands[b][y*testWidth+x] = 220
				}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(tciPath), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cloudPath), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := raster.WriteRaster(tciPath, rgb); err != nil {
		t.Fatalf("Failed to write true-color raster: %v", err)
	}
	if err := raster.WriteRaster(cloudPath, models.NewRaster(testWidth, testHeight, 1)); err != nil {
		t.Fatalf("Failed to write cloud raster: %v", err)
	}
}

func testParams(t *testing.T, dir string) *Params {
	t.Helper()
	tci := filepath.Join(dir, "in", "truecolor_2012-08-01_214_terra.tif")
	cloud := filepath.Join(dir, "in", "cloud_2012-08-01_214_terra.tif")
	writeScene(t, tci, cloud)

	meta, err := scene.ParseFilename(cloud)
	if err != nil {
		t.Fatalf("Failed to parse scene name: %v", err)
	}
	return &Params{
		TrueColorPath:           tci,
		CloudPath:               cloud,
		Land:                    models.NewMask(testWidth, testHeight),
		OutputDir:               filepath.Join(dir, "out"),
		Meta:                    meta,
		Scales:                  []int{2, 1},
		Element:                 morphology.Diamond(1),
		Threshold:               &threshold.Generator{BlockSize: 31, Method: threshold.Gaussian},
		SaveIntermediaryResults: true,
	}
}

// TestProcess verifies a synthetic scene yields both floes and every output
func TestProcess(t *testing.T) {
	dir := t.TempDir()
	params := testParams(t, dir)

	res, err := NewProcessor(params, nil).Process(context.Background())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(res.Regions) != 2 {
		t.Fatalf("Expected 2 floes, got %d", len(res.Regions))
	}
	if res.Coverage.Ice != 12*12+16*16 {
		t.Errorf("Expected ice area %d, got %d", 12*12+16*16, res.Coverage.Ice)
	}
	if res.Labels.Min() < 0 {
		t.Errorf("Final labels must not be negative")
	}

	names := scene.NamesFor(params.Meta, "")
	for _, name := range []string{
		names.Properties(),
		names.Final(),
		names.MaskValues(),
		names.IceMask(),
		names.Histogram(),
		names.CloudMaskedRGB(),
		names.LandCloudMaskedRGB(),
		names.Round(0),
		names.Round(1),
		names.Quicklook(),
	} {
		if _, err := os.Stat(filepath.Join(params.OutputDir, name)); err != nil {
			t.Errorf("Expected output %s: %v", name, err)
		}
	}

	values, err := os.ReadFile(filepath.Join(params.OutputDir, names.MaskValues()))
	if err != nil {
		t.Fatalf("Failed to read mask values: %v", err)
	}
	fields := strings.Split(strings.TrimSpace(string(values)), "\t")
	if len(fields) != 4 || fields[0] != "214" || fields[1] != "400" || fields[2] != "3072" {
		t.Errorf("Unexpected mask values line %q", values)
	}

	final, err := raster.Read(filepath.Join(params.OutputDir, names.Final()))
	if err != nil {
		t.Fatalf("Failed to read final labels: %v", err)
	}
	if final.Bands[0][10*testWidth+10] == 0 {
		t.Errorf("Expected the first floe in the final raster")
	}
}

func TestProcessMissingInput(t *testing.T) {
	dir := t.TempDir()
	params := testParams(t, dir)
	params.CloudPath = filepath.Join(dir, "missing.tif")

	if _, err := NewProcessor(params, nil).Process(context.Background()); err == nil {
		t.Errorf("Expected an error for a missing cloud raster")
	}
}

func TestProcessShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	params := testParams(t, dir)
	params.Land = models.NewMask(testWidth+1, testHeight)

	if _, err := NewProcessor(params, nil).Process(context.Background()); err == nil {
		t.Errorf("Expected a shape mismatch error")
	}
}

// TestSaveOutputsRejectsLabelRange verifies no properties table is left
// behind when the final labels cannot be written
func TestSaveOutputsRejectsLabelRange(t *testing.T) {
	dir := t.TempDir()
	meta := scene.Meta{DOY: "214", Year: "2012", Satellite: "terra", Date: "2012-08-02"}
	p := NewProcessor(&Params{OutputDir: dir, Meta: meta}, nil)

	labels := models.LabelImageFromRows([][]int32{{65536, 0}})
	err := p.saveOutputs(labels, nil)
	if !errors.Is(err, raster.ErrLabelRange) {
		t.Fatalf("Expected ErrLabelRange, got %v", err)
	}

	names := scene.NamesFor(meta, "")
	for _, name := range []string{names.Properties(), names.Final()} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("Expected no %s after a failed save, got %v", name, err)
		}
	}
}

// TestBatchIsolatesFailures verifies a broken scene does not stop the others
func TestBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")

	for _, day := range []string{"2012-08-01_214", "2012-08-02_215"} {
		writeScene(t,
			filepath.Join(data, "tci", "truecolor_"+day+"_terra.tif"),
			filepath.Join(data, "cloud", "cloud_"+day+"_terra.tif"))
	}
	// A scene whose true-color file is not a TIFF
	if err := os.WriteFile(filepath.Join(data, "tci", "truecolor_2012-08-03_216_terra.tif"), []byte("junk"), 0644); err != nil {
		t.Fatalf("Failed to write broken scene: %v", err)
	}
	if err := raster.WriteRaster(filepath.Join(data, "cloud", "cloud_2012-08-03_216_terra.tif"),
		models.NewRaster(testWidth, testHeight, 1)); err != nil {
		t.Fatalf("Failed to write cloud raster: %v", err)
	}

	land := filepath.Join(dir, "land.tif")
	if err := raster.WriteRaster(land, models.NewRaster(testWidth, testHeight, 1)); err != nil {
		t.Fatalf("Failed to write land raster: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.DataDirec = data
	cfg.SaveDirec = filepath.Join(dir, "save")
	cfg.Land = land
	cfg.Erosion.Itmax, cfg.Erosion.Itmin, cfg.Erosion.Step = 2, 1, -1
	cfg.Threshold.BlockSize = 31
	cfg.Processing.Workers = 2

	reports, err := NewBatch(cfg, nil).Run(context.Background())
	if err == nil {
		t.Fatalf("Expected the broken scene to be reported")
	}
	if len(reports) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(reports))
	}

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
			continue
		}
		if r.Floes != 2 {
			t.Errorf("Scene %s: expected 2 floes, got %d", r.Meta.DOY, r.Floes)
		}
		if _, err := os.Stat(filepath.Join(cfg.SaveDirec, r.Meta.DOY)); err != nil {
			t.Errorf("Expected output directory for %s: %v", r.Meta.DOY, err)
		}
	}
	if failed != 1 {
		t.Errorf("Expected exactly one failed scene, got %d", failed)
	}
}

func TestListJobsCountMismatch(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"tci", "cloud"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", sub, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "tci", "a.tif"), nil, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := ListJobs(dir); err == nil {
		t.Errorf("Expected an error for unpaired scenes")
	}
}
