// Package visualization renders diagnostic figures for a processed scene.
package visualization

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"floeseg/pkg/threshold"
)

// Figure size of the histogram, matching the 6x2 inch layout of the
// calibration plots.
var (
	HistogramWidth  = 6 * vg.Inch
	HistogramHeight = 2 * vg.Inch
)

// HistogramPlot draws the calibration histogram of the masked red band with
// vertical lines at the two threshold cuts.
func HistogramPlot(cal threshold.Calibration) (*plot.Plot, error) {
	if len(cal.Edges) != len(cal.Counts)+1 || len(cal.Counts) == 0 {
		return nil, errors.Errorf("histogram has %d edges for %d counts", len(cal.Edges), len(cal.Counts))
	}

	// The two zero-weight end points pin the bins to the calibration edges.
	first, last := cal.Edges[0], cal.Edges[len(cal.Edges)-1]
	xys := plotter.XYs{{X: first}, {X: last}}
	for i, n := range cal.Counts {
		xys = append(xys, plotter.XY{X: (cal.Edges[i] + cal.Edges[i+1]) / 2, Y: n})
	}

	hist, err := plotter.NewHistogram(xys, len(cal.Counts))
	if err != nil {
		return nil, errors.Wrap(err, "histogram")
	}
	hist.FillColor = color.RGBA{R: 255, A: 255}

	p := plot.New()
	p.X.Label.Text = "red"
	p.Y.Label.Text = "pixels"
	p.Add(hist)

	top := floats.Max(cal.Counts)
	if top == 0 {
		top = 1
	}
	for _, cut := range []float64{cal.Min, cal.Max} {
		line, err := plotter.NewLine(plotter.XYs{{X: cut, Y: 0}, {X: cut, Y: top}})
		if err != nil {
			return nil, errors.Wrap(err, "cut line")
		}
		line.Color = color.RGBA{B: 255, A: 255}
		p.Add(line)
	}
	return p, nil
}

// SaveHistogram writes the calibration histogram to path; the format
// follows the file extension.
func SaveHistogram(path string, cal threshold.Calibration) error {
	p, err := HistogramPlot(cal)
	if err != nil {
		return err
	}
	return errors.Wrapf(p.Save(HistogramWidth, HistogramHeight, path), "save %s", path)
}
