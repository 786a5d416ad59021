// Package pipeline runs the floe segmentation of a scene end to end, from
// the input rasters to the properties table, and fans a directory of scenes
// out over a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"floeseg/internal/logger"
	"floeseg/internal/models"
	"floeseg/pkg/consolidate"
	"floeseg/pkg/features"
	"floeseg/pkg/masking"
	"floeseg/pkg/morphology"
	"floeseg/pkg/raster"
	"floeseg/pkg/scene"
	"floeseg/pkg/segmentation"
	"floeseg/pkg/threshold"
	"floeseg/pkg/visualization"
)

const component = "pipeline"

// Params holds the per-scene processing parameters.
type Params struct {
	// TrueColorPath is the 3 or 4 band true-color raster of the scene
	TrueColorPath string

	// CloudPath is the single band cloud raster, aligned with the true-color raster
	CloudPath string

	// Land is the land mask, shared read-only between scenes
	Land *models.Mask

	// OutputDir receives every file written for the scene
	OutputDir string

	// Prefix is prepended to output file names
	Prefix string

	// Meta names the scene; its date and satellite appear in output names
	Meta scene.Meta

	Scales  []int
	Element morphology.Element

	Masks     *masking.Builder
	Threshold *threshold.Generator

	// WarnFactor is passed to the consolidator
	WarnFactor int

	// SaveIntermediaryResults writes masked rasters, the ice mask, the
	// histogram, every identification round and a quicklook
	SaveIntermediaryResults bool
}

// Result summarises a processed scene.
type Result struct {
	Meta        scene.Meta
	Regions     []features.Region
	Labels      *models.LabelImage
	Coverage    masking.Coverage
	Calibration threshold.Calibration
	Duration    time.Duration
}

// Processor segments one scene.
type Processor struct {
	params *Params
	names  scene.Names
	log    logger.Logger
}

// NewProcessor creates a processor for params. A nil logger discards output.
func NewProcessor(params *Params, log logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	if params.Masks == nil {
		params.Masks = masking.NewBuilder()
	}
	if params.Threshold == nil {
		params.Threshold = threshold.NewGenerator()
	}
	return &Processor{
		params: params,
		names:  scene.NamesFor(params.Meta, params.Prefix),
		log:    log,
	}
}

// Process runs the complete pipeline for the scene
func (p *Processor) Process(ctx context.Context) (*Result, error) {
	start := time.Now()
	if len(p.params.Scales) == 0 {
		return nil, errors.Wrap(segmentation.ErrInvalidScaleSequence, "no scales")
	}
	if p.params.Land == nil {
		return nil, errors.New("no land mask")
	}
	if err := os.MkdirAll(p.params.OutputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	// Step 1: Load the scene rasters
	rgb, err := raster.Read(p.params.TrueColorPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load true-color raster")
	}
	if len(rgb.Bands) < 3 {
		return nil, errors.Errorf("true-color raster has %d bands, expected 3 or 4", len(rgb.Bands))
	}
	cloud, err := raster.Read(p.params.CloudPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load cloud raster")
	}
	if err := models.CheckShape(rgb.Dims(), cloud.Dims(), p.params.Land.Dims()); err != nil {
		return nil, errors.Wrap(err, "scene rasters")
	}

	// Step 2: Build the land and cloud masks
	masks, err := p.params.Masks.Build(p.params.Land, cloud)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build masks")
	}
	cloudMasked, err := masking.ApplyToRGB(rgb, masks.Cloud)
	if err != nil {
		return nil, err
	}
	p.saveIntermediaryResult(p.names.CloudMaskedRGB(), cloudMasked)
	masked, err := masking.ApplyToRGB(rgb, masks.LandCloud)
	if err != nil {
		return nil, err
	}
	p.saveIntermediaryResult(p.names.LandCloudMaskedRGB(), masked)

	// Step 3: Calibrate the threshold and build the ice mask
	ice, err := p.params.Threshold.Generate(rgb, masked)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build ice mask")
	}
	p.log.Info(component, "threshold calibrated", map[string]interface{}{
		"scene":   p.params.Meta.DOY,
		"min_cut": ice.Calibration.Min,
		"max_cut": ice.Calibration.Max,
	})
	p.saveIntermediaryResult(p.names.Histogram(), ice.Calibration)

	coverage := masking.ComputeCoverage(masks.LandCloud, ice.Ice)
	if err := p.appendMaskValues(coverage); err != nil {
		return nil, err
	}
	p.saveIntermediaryResult(p.names.IceMask(), ice.Ice)

	// Step 4: Segment the ice mask over the scale sequence
	engine := segmentation.NewEngine(p.params.Element, p.params.Scales)
	engine.Logger = p.log
	engine.OnPass = func(pass segmentation.PassResult) error {
		p.saveIntermediaryResult(p.names.Round(pass.Round), pass.Watershed)
		return nil
	}
	state, err := engine.Run(ctx, segmentation.Scene{
		RGB:       masked,
		Ice:       ice.Ice,
		Exclusion: masks.LandCloudDilated,
	})
	if err != nil {
		return nil, errors.Wrap(err, "segmentation failed")
	}

	// Step 5: Consolidate labels into single blobs
	consolidator := consolidate.New(p.log)
	if p.params.WarnFactor > 0 {
		consolidator.WarnFactor = p.params.WarnFactor
	}
	labels, err := consolidator.Consolidate(state.Labels)
	if err != nil {
		return nil, errors.Wrap(err, "consolidation failed")
	}

	// Step 6: Extract floe properties
	regions, err := features.Extract(labels, rgb.Bands[0])
	if err != nil {
		return nil, errors.Wrap(err, "feature extraction failed")
	}

	// Step 7: Save the final label raster and the properties table
	if err := p.saveOutputs(labels, regions); err != nil {
		return nil, err
	}
	if p.params.SaveIntermediaryResults {
		viewer := visualization.NewViewer(labels, rgb)
		path := filepath.Join(p.params.OutputDir, p.names.Quicklook())
		if err := viewer.SaveQuicklook(path); err != nil {
			p.log.Warning(component, "failed to save quicklook", map[string]interface{}{"error": err.Error()})
		}
	}

	res := &Result{
		Meta:        p.params.Meta,
		Regions:     regions,
		Labels:      labels,
		Coverage:    coverage,
		Calibration: ice.Calibration,
		Duration:    time.Since(start),
	}
	p.log.Info(component, "scene processed", map[string]interface{}{
		"scene":    p.params.Meta.DOY,
		"floes":    len(regions),
		"ice":      coverage.Ice,
		"duration": res.Duration.String(),
	})
	return res, nil
}

// saveOutputs writes the final label raster, then the properties table, so
// a scene whose labels cannot be written leaves no table behind.
func (p *Processor) saveOutputs(labels *models.LabelImage, regions []features.Region) error {
	if err := raster.WriteLabels(filepath.Join(p.params.OutputDir, p.names.Final()), labels, false); err != nil {
		return errors.Wrap(err, "failed to save final labels")
	}
	return features.SaveCSV(filepath.Join(p.params.OutputDir, p.names.Properties()), regions)
}

// appendMaskValues appends the scene's coverage line to the mask values
// file: day of year, ice pixels, unmasked pixels and their ratio.
func (p *Processor) appendMaskValues(c masking.Coverage) error {
	path := filepath.Join(p.params.OutputDir, p.names.MaskValues())
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to open mask values")
	}
	line := fmt.Sprintf("%s\t%d\t%d\t%s\n", p.params.Meta.DOY, c.Ice, c.Unmasked,
		strconv.FormatFloat(c.Ratio, 'g', -1, 64))
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write mask values")
	}
	return errors.Wrap(f.Close(), "failed to close mask values")
}

// saveIntermediaryResult writes a diagnostic artifact when enabled. Failures
// are logged and do not stop the scene.
func (p *Processor) saveIntermediaryResult(name string, data interface{}) {
	if !p.params.SaveIntermediaryResults {
		return
	}
	path := filepath.Join(p.params.OutputDir, name)

	var err error
	switch v := data.(type) {
	case *models.Raster:
		err = raster.WriteRaster(path, v)
	case *models.Mask:
		err = raster.WriteMask(path, v)
	case *models.LabelImage:
		err = raster.WriteLabels(path, v, true)
	case threshold.Calibration:
		err = visualization.SaveHistogram(path, v)
	default:
		err = errors.Errorf("cannot save %T", data)
	}
	if err != nil {
		p.log.Warning(component, "failed to save intermediary result", map[string]interface{}{
			"file":  name,
			"error": err.Error(),
		})
	}
}
