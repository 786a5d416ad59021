package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"floeseg/pkg/segmentation"
)

// TestLoadConfigTOML verifies the batch configuration layout is parsed
func TestLoadConfigTOML(t *testing.T) {
	// Create test data
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_direc = "tests/input"
save_figs = true
save_direc = "tests/output"
land = "tests/input/reproj_land.tiff"

[erosion]
itmax = 8
itmin = 3
step = -1
kernel_type = "diamond"
kernel_size = 1

[processing]
workers = 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DataDirec != "tests/input" || !cfg.SaveFigs || cfg.SaveDirec != "tests/output" {
		t.Errorf("Unexpected top-level settings %+v", cfg)
	}
	if cfg.Land != "tests/input/reproj_land.tiff" {
		t.Errorf("Expected land path, got %s", cfg.Land)
	}
	if cfg.Erosion.Itmax != 8 || cfg.Erosion.Itmin != 3 || cfg.Erosion.Step != -1 {
		t.Errorf("Unexpected erosion settings %+v", cfg.Erosion)
	}
	if cfg.Processing.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Processing.Workers)
	}
	if cfg.Threshold.BlockSize != 399 {
		t.Errorf("Expected default block size to survive, got %d", cfg.Threshold.BlockSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected a valid config, got %v", err)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
save_direc: out
erosion:
  itmax: 4
  itmin: 1
  step: -1
  kernel_type: ellipse
  kernel_size: 3
threshold:
  method: median
  block_size: 31
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Erosion.KernelType != "ellipse" || cfg.Threshold.Method != "median" || cfg.Threshold.BlockSize != 31 {
		t.Errorf("Unexpected settings %+v", cfg)
	}
	scales, err := cfg.Scales()
	if err != nil {
		t.Fatalf("Scales failed: %v", err)
	}
	if diff := cmp.Diff([]int{4, 3, 2, 1}, scales); diff != "" {
		t.Errorf("Scales mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[erosion\nitmax = "), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("Expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero step", func(c *Config) { c.Erosion.Step = 0 }},
		{"wrong direction", func(c *Config) { c.Erosion.Step = 1 }},
		{"unknown kernel", func(c *Config) { c.Erosion.KernelType = "square" }},
		{"unknown method", func(c *Config) { c.Threshold.Method = "otsu" }},
		{"even block", func(c *Config) { c.Threshold.BlockSize = 10 }},
		{"negative workers", func(c *Config) { c.Processing.Workers = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Erosion.Step = 0
	if err := cfg.Validate(); !errors.Is(err, segmentation.ErrInvalidScaleSequence) {
		t.Errorf("Expected ErrInvalidScaleSequence, got %v", err)
	}
}

// TestSaveConfigRoundTrip verifies both formats reload to the same settings
func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"config.toml", "nested/config.yaml"} {
		path := filepath.Join(t.TempDir(), name)

		cfg := DefaultConfig()
		cfg.SaveDirec = "out"
		cfg.Erosion.Itmax = 5
		cfg.Masks.CloudThreshold = 12

		if err := SaveConfig(cfg, path); err != nil {
			t.Fatalf("%s: failed to save config: %v", name, err)
		}
		loaded, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("%s: failed to load config: %v", name, err)
		}
		if diff := cmp.Diff(cfg, loaded); diff != "" {
			t.Errorf("%s: round trip mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floeseg.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}
