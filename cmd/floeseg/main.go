package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"floeseg/internal/logger"
	"floeseg/pkg/config"
	"floeseg/pkg/pipeline"
	"floeseg/pkg/scene"
)

const (
	flagConfig    = "config"
	flagTrueColor = "truecolor"
	flagCloud     = "cloud"
	flagLand      = "land"
	flagOut       = "out"
	flagPrefix    = "prefix"
	flagDate      = "date"
	flagItmax     = "itmax"
	flagItmin     = "itmin"
	flagStep      = "step"
	flagSaveFigs  = "save-figs"
	flagLogLevel  = "log-level"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "floeseg:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "floeseg",
		Usage:     "segment sea-ice floes in true-color satellite scenes",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "YAML or TOML configuration `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "overrides logging.level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "process",
				Usage:  "segment a single scene",
				Action: processAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagTrueColor, Usage: "true-color raster", Required: true},
					&cli.StringFlag{Name: flagCloud, Usage: "cloud raster", Required: true},
					&cli.StringFlag{Name: flagLand, Usage: "land mask raster (overrides land)"},
					&cli.StringFlag{Name: flagOut, Usage: "output directory (overrides save_direc)"},
					&cli.StringFlag{Name: flagPrefix, Usage: "prefix of every output file name"},
					&cli.StringFlag{Name: flagDate, Usage: "scene date used in output names, when not derived from the cloud file name"},
					&cli.IntFlag{Name: flagItmax, Usage: "first erosion iteration count"},
					&cli.IntFlag{Name: flagItmin, Usage: "last erosion iteration count"},
					&cli.IntFlag{Name: flagStep, Usage: "erosion iteration step"},
					&cli.BoolFlag{Name: flagSaveFigs, Usage: "write intermediate rasters and figures"},
				},
			},
			{
				Name:   "batch",
				Usage:  "segment every scene under data_direc/tci and data_direc/cloud",
				Action: batchAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagSaveFigs, Usage: "write intermediate rasters and figures"},
				},
			},
			{
				Name:      "init-config",
				Usage:     "write a configuration file with default values",
				ArgsUsage: "<path>",
				Action:    initConfigAction,
			},
		},
	}
}

// loadConfig reads the configuration named by the global flag and builds
// the logger it describes.
func loadConfig(c *cli.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig(c.String(flagConfig))
	if err != nil {
		return nil, nil, err
	}
	if c.IsSet(flagLogLevel) {
		cfg.Logging.Level = c.String(flagLogLevel)
	}
	if c.IsSet(flagSaveFigs) {
		cfg.SaveFigs = c.Bool(flagSaveFigs)
	}

	level := logger.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		return cfg, logger.NewTeeLogger(level, cfg.Logging.File), nil
	}
	return cfg, logger.NewConsoleLogger(level), nil
}

func processAction(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet(flagLand) {
		cfg.Land = c.String(flagLand)
	}
	if c.IsSet(flagOut) {
		cfg.SaveDirec = c.String(flagOut)
	}
	if c.IsSet(flagItmax) {
		cfg.Erosion.Itmax = c.Int(flagItmax)
	}
	if c.IsSet(flagItmin) {
		cfg.Erosion.Itmin = c.Int(flagItmin)
	}
	if c.IsSet(flagStep) {
		cfg.Erosion.Step = c.Int(flagStep)
	}

	job := pipeline.Job{
		TrueColorPath: c.String(flagTrueColor),
		CloudPath:     c.String(flagCloud),
	}
	meta, err := scene.ParseFilename(job.CloudPath)
	if err != nil && !c.IsSet(flagDate) {
		return errors.Wrap(err, "pass --date for cloud files outside the naming scheme")
	}
	if c.IsSet(flagDate) {
		meta.Date = c.String(flagDate)
	}

	start := time.Now()
	res, err := pipeline.NewBatch(cfg, log).ProcessScene(c.Context, job, meta, c.String(flagPrefix))
	if err != nil {
		return err
	}

	printSummary(c.App.Writer, []pipeline.SceneReport{{
		Job:      job,
		Meta:     res.Meta,
		Floes:    len(res.Regions),
		Coverage: res.Coverage,
		Duration: time.Since(start),
	}})
	return nil
}

func batchAction(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}

	reports, err := pipeline.NewBatch(cfg, log).Run(c.Context)
	printSummary(c.App.Writer, reports)
	return err
}

func initConfigAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("init-config needs a destination path")
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Default configuration written to %s\n", path)
	return nil
}

// printSummary renders one row per scene.
func printSummary(w io.Writer, reports []pipeline.SceneReport) {
	if len(reports) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Date", "DOY", "Satellite", "Floes", "Ice", "Ice ratio", "Time", "Status"})

	var floes, failed int
	for i, r := range reports {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		floes += r.Floes
		t.AppendRow(table.Row{
			i + 1,
			r.Meta.Date,
			r.Meta.DOY,
			r.Meta.Satellite,
			r.Floes,
			r.Coverage.Ice,
			fmt.Sprintf("%.3f", r.Coverage.Ratio),
			r.Duration.Round(time.Millisecond),
			status,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", floes, "", "", "", fmt.Sprintf("%d failed", failed)})
	t.Render()
}
