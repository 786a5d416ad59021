package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"floeseg/pkg/config"
	"floeseg/pkg/pipeline"
	"floeseg/pkg/scene"
)

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floeseg.toml")

	var out bytes.Buffer
	if err := newApp(&out).RunContext(context.Background(), []string{"floeseg", "init-config", path}); err != nil {
		t.Fatalf("init-config failed: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load written config: %v", err)
	}
	if cfg.Erosion.Itmax != 8 || cfg.Threshold.BlockSize != 399 {
		t.Errorf("Written config does not hold defaults: %+v", cfg)
	}
}

func TestInitConfigNeedsPath(t *testing.T) {
	var out bytes.Buffer
	if err := newApp(&out).RunContext(context.Background(), []string{"floeseg", "init-config"}); err == nil {
		t.Errorf("Expected an error without a path")
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, []pipeline.SceneReport{
		{Meta: scene.Meta{Date: "20120801", DOY: "214", Satellite: "terra"}, Floes: 12},
		{Meta: scene.Meta{DOY: "215"}, Err: errors.New("bad raster")},
	})

	// go-pretty upper-cases the footer
	got := strings.ToLower(out.String())
	for _, want := range []string{"20120801", "terra", "bad raster", "1 failed"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary is missing %q:\n%s", want, got)
		}
	}
}
