package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"floeseg/internal/logger"
	"floeseg/internal/models"
	"floeseg/pkg/config"
	"floeseg/pkg/masking"
	"floeseg/pkg/raster"
	"floeseg/pkg/scene"
	"floeseg/pkg/threshold"
)

// Job is one scene of a batch.
type Job struct {
	TrueColorPath string
	CloudPath     string
}

// SceneReport is the outcome of one batch scene.
type SceneReport struct {
	Job      Job
	Meta     scene.Meta
	Floes    int
	Coverage masking.Coverage
	Duration time.Duration
	Err      error
}

// Batch processes every scene of a data directory.
type Batch struct {
	cfg *config.Config
	log logger.Logger
}

// NewBatch creates a batch runner. A nil logger discards output.
func NewBatch(cfg *config.Config, log logger.Logger) *Batch {
	if log == nil {
		log = logger.Nop()
	}
	return &Batch{cfg: cfg, log: log}
}

// ListJobs pairs the sorted listings of dataDir/tci and dataDir/cloud.
func ListJobs(dataDir string) ([]Job, error) {
	tci, err := listFiles(filepath.Join(dataDir, "tci"))
	if err != nil {
		return nil, err
	}
	cloud, err := listFiles(filepath.Join(dataDir, "cloud"))
	if err != nil {
		return nil, err
	}
	if len(tci) != len(cloud) {
		return nil, errors.Errorf("found %d true-color and %d cloud rasters", len(tci), len(cloud))
	}

	jobs := make([]Job, len(tci))
	for i := range tci {
		jobs[i] = Job{TrueColorPath: tci[i], CloudPath: cloud[i]}
	}
	return jobs, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scenes")
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run processes every scene with at most cfg.Processing.Workers scenes in
// flight. A failing scene is logged and reported without stopping the
// others; the returned error combines every scene error.
func (b *Batch) Run(ctx context.Context) ([]SceneReport, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	jobs, err := ListJobs(b.cfg.DataDirec)
	if err != nil {
		return nil, err
	}

	builder, land, err := b.loadLand()
	if err != nil {
		return nil, err
	}

	b.log.Info(component, "starting batch", map[string]interface{}{
		"scenes":  len(jobs),
		"workers": b.cfg.Processing.Workers,
	})

	reports := make([]SceneReport, len(jobs))
	var (
		mu   sync.Mutex
		errs error
	)

	var g errgroup.Group
	if b.cfg.Processing.Workers > 0 {
		g.SetLimit(b.cfg.Processing.Workers)
	}
	for i, job := range jobs {
		g.Go(func() error {
			reports[i] = b.runScene(ctx, job, builder, land)
			if err := reports[i].Err; err != nil {
				b.log.Error(component, err, map[string]interface{}{
					"scene": filepath.Base(job.CloudPath),
				})
				mu.Lock()
				errs = multierr.Append(errs, errors.Wrapf(err, "scene %s", filepath.Base(job.CloudPath)))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errs
}

// ProcessScene segments a single scene into the save directory itself,
// without the per-day subdirectory of a batch run.
func (b *Batch) ProcessScene(ctx context.Context, job Job, meta scene.Meta, prefix string) (*Result, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	builder, land, err := b.loadLand()
	if err != nil {
		return nil, err
	}
	params, err := b.sceneParams(job, meta, builder, land)
	if err != nil {
		return nil, err
	}
	params.OutputDir = b.cfg.SaveDirec
	if params.OutputDir == "" {
		params.OutputDir = "."
	}
	params.Prefix = prefix
	return NewProcessor(params, b.log).Process(ctx)
}

func (b *Batch) loadLand() (*masking.Builder, *models.Mask, error) {
	builder := &masking.Builder{
		CloudThreshold: b.cfg.Masks.CloudThreshold,
		LandThreshold:  b.cfg.Masks.LandThreshold,
		DilationRadius: b.cfg.Masks.DilationRadius,
	}
	landRaster, err := raster.Read(b.cfg.Land)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load land mask")
	}
	land, err := builder.LandMask(landRaster)
	if err != nil {
		return nil, nil, err
	}
	return builder, land, nil
}

func (b *Batch) runScene(ctx context.Context, job Job, builder *masking.Builder, land *models.Mask) SceneReport {
	report := SceneReport{Job: job}
	if err := ctx.Err(); err != nil {
		report.Err = err
		return report
	}

	meta, err := scene.ParseFilename(job.CloudPath)
	if err != nil {
		report.Err = err
		return report
	}
	report.Meta = meta

	params, err := b.sceneParams(job, meta, builder, land)
	if err != nil {
		report.Err = err
		return report
	}
	res, err := NewProcessor(params, b.log).Process(ctx)
	if err != nil {
		report.Err = err
		return report
	}
	report.Floes = len(res.Regions)
	report.Coverage = res.Coverage
	report.Duration = res.Duration
	return report
}

// sceneParams derives the processing parameters of one batch scene. Output
// goes to a subdirectory of the save directory named after the day of year.
func (b *Batch) sceneParams(job Job, meta scene.Meta, builder *masking.Builder, land *models.Mask) (*Params, error) {
	scales, err := b.cfg.Scales()
	if err != nil {
		return nil, err
	}
	elem, err := b.cfg.Element()
	if err != nil {
		return nil, err
	}
	method, err := threshold.ParseMethod(b.cfg.Threshold.Method)
	if err != nil {
		return nil, err
	}

	return &Params{
		TrueColorPath:           job.TrueColorPath,
		CloudPath:               job.CloudPath,
		Land:                    land,
		OutputDir:               filepath.Join(b.cfg.SaveDirec, meta.DOY),
		Meta:                    meta,
		Scales:                  scales,
		Element:                 elem,
		Masks:                   builder,
		Threshold:               &threshold.Generator{BlockSize: b.cfg.Threshold.BlockSize, Method: method},
		WarnFactor:              b.cfg.Consolidation.WarnFactor,
		SaveIntermediaryResults: b.cfg.SaveFigs,
	}, nil
}
