// Package config provides configuration loading and management for floeseg.
// It handles loading configuration from TOML or YAML files and provides
// default values.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"floeseg/pkg/consolidate"
	"floeseg/pkg/masking"
	"floeseg/pkg/morphology"
	"floeseg/pkg/segmentation"
	"floeseg/pkg/threshold"
)

// Config represents the application configuration
type Config struct {
	// DataDirec holds the tci/ and cloud/ input directories of a batch
	DataDirec string `yaml:"data_direc" toml:"data_direc"`

	// SaveFigs enables the intermediate rasters and figures
	SaveFigs bool `yaml:"save_figs" toml:"save_figs"`

	// SaveDirec is the output root; batch scenes go to one subdirectory per day of year
	SaveDirec string `yaml:"save_direc" toml:"save_direc"`

	// Land is the land mask raster shared by every scene
	Land string `yaml:"land" toml:"land"`

	// Erosion parameters of the multi-scale segmentation
	Erosion struct {
		// Itmax is the first (coarsest) erosion iteration count
		Itmax int `yaml:"itmax" toml:"itmax"`

		// Itmin is the last erosion iteration count
		Itmin int `yaml:"itmin" toml:"itmin"`

		// Step moves from Itmax to Itmin
		Step int `yaml:"step" toml:"step"`

		// KernelType is "diamond" or "ellipse"
		KernelType string `yaml:"kernel_type" toml:"kernel_type"`

		// KernelSize is the diamond radius or the ellipse side
		KernelSize int `yaml:"kernel_size" toml:"kernel_size"`
	} `yaml:"erosion" toml:"erosion"`

	// Threshold parameters of the ice mask
	Threshold struct {
		// Method is "gaussian", "mean" or "median"
		Method string `yaml:"method" toml:"method"`

		// BlockSize is the odd side of the local neighbourhood
		BlockSize int `yaml:"block_size" toml:"block_size"`
	} `yaml:"threshold" toml:"threshold"`

	Masks struct {
		CloudThreshold uint8 `yaml:"cloud_threshold" toml:"cloud_threshold"`
		LandThreshold  uint8 `yaml:"land_threshold" toml:"land_threshold"`
		DilationRadius int   `yaml:"dilation_radius" toml:"dilation_radius"`
	} `yaml:"masks" toml:"masks"`

	Consolidation struct {
		// WarnFactor flags discarded blobs larger than 1/WarnFactor of the kept one
		WarnFactor int `yaml:"warn_factor" toml:"warn_factor"`
	} `yaml:"consolidation" toml:"consolidation"`

	Processing struct {
		// Workers bounds the scenes processed concurrently
		Workers int `yaml:"workers" toml:"workers"`
	} `yaml:"processing" toml:"processing"`

	Logging struct {
		Level string `yaml:"level" toml:"level"`

		// File, when set, receives a rotated copy of the log
		File string `yaml:"file" toml:"file"`
	} `yaml:"logging" toml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Erosion.Itmax = 8
	cfg.Erosion.Itmin = 3
	cfg.Erosion.Step = -1
	cfg.Erosion.KernelType = "diamond"
	cfg.Erosion.KernelSize = 1

	cfg.Threshold.Method = string(threshold.Gaussian)
	cfg.Threshold.BlockSize = threshold.DefaultBlockSize

	cfg.Masks.DilationRadius = masking.DefaultDilationRadius

	cfg.Consolidation.WarnFactor = consolidate.DefaultWarnFactor

	cfg.Processing.Workers = runtime.NumCPU() // Use all available cores by default

	cfg.Logging.Level = "info"

	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a TOML (.toml) or YAML file.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	return cfg, nil
}

// Validate checks the settings that would otherwise fail mid-run.
func (c *Config) Validate() error {
	if _, err := c.Scales(); err != nil {
		return err
	}
	if _, err := c.Element(); err != nil {
		return err
	}
	if _, err := threshold.ParseMethod(c.Threshold.Method); err != nil {
		return err
	}
	if c.Threshold.BlockSize < 3 || c.Threshold.BlockSize%2 == 0 {
		return errors.Wrapf(threshold.ErrBlockSize, "threshold.block_size %d", c.Threshold.BlockSize)
	}
	if c.Masks.DilationRadius < 0 {
		return errors.Errorf("masks.dilation_radius must be non-negative, got %d", c.Masks.DilationRadius)
	}
	if c.Processing.Workers < 0 {
		return errors.Errorf("processing.workers must be non-negative, got %d", c.Processing.Workers)
	}
	return nil
}

// Scales returns the validated scale sequence.
func (c *Config) Scales() ([]int, error) {
	return segmentation.ScaleSequence(c.Erosion.Itmax, c.Erosion.Itmin, c.Erosion.Step)
}

// Element returns the structuring element of the erosion settings.
func (c *Config) Element() (morphology.Element, error) {
	return morphology.NewElement(c.Erosion.KernelType, c.Erosion.KernelSize)
}

// SaveConfig saves the configuration, as TOML when the path ends in .toml
// and as YAML otherwise
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return errors.Wrap(err, "error marshaling config")
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return errors.Wrap(err, "error marshaling config")
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
