// Package features measures the shape and intensity of every labelled floe.
package features

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"floeseg/internal/models"
)

// Region holds the properties of one label. Rows and columns are pixel
// indices; MaxRow and MaxCol are exclusive.
type Region struct {
	Label      int32
	Area       int
	ConvexArea int

	MinRow, MinCol int
	MaxRow, MaxCol int

	RowCentroid float64
	ColCentroid float64

	MajorAxisLength float64
	MinorAxisLength float64

	// Orientation is the angle in radians between the row axis and the
	// major axis, in [-pi/2, pi/2]
	Orientation float64

	Perimeter     float64
	IntensityMean float64
}

// Extract measures every positive label of labels, in ascending label order.
// intensity is a band of the same grid, typically the unmasked red channel.
func Extract(labels *models.LabelImage, intensity []uint8) ([]Region, error) {
	if len(intensity) != len(labels.Pix) {
		return nil, errors.Wrapf(models.ErrShapeMismatch, "intensity has %d pixels, labels %dx%d",
			len(intensity), labels.Width, labels.Height)
	}

	pixels := make(map[int32][]int)
	for i, v := range labels.Pix {
		if v > 0 {
			pixels[v] = append(pixels[v], i)
		}
	}
	ids := lo.Keys(pixels)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	regions := make([]Region, 0, len(ids))
	for _, id := range ids {
		regions = append(regions, measure(id, pixels[id], labels.Width, intensity))
	}
	return regions, nil
}

func measure(id int32, idx []int, width int, intensity []uint8) Region {
	n := len(idx)
	rows := make([]float64, n)
	cols := make([]float64, n)
	values := make([]float64, n)
	for k, i := range idx {
		rows[k] = float64(i / width)
		cols[k] = float64(i % width)
		values[k] = float64(intensity[i])
	}

	r := Region{
		Label:         id,
		Area:          n,
		MinRow:        int(lo.Min(rows)),
		MinCol:        int(lo.Min(cols)),
		MaxRow:        int(lo.Max(rows)) + 1,
		MaxCol:        int(lo.Max(cols)) + 1,
		RowCentroid:   stat.Mean(rows, nil),
		ColCentroid:   stat.Mean(cols, nil),
		IntensityMean: stat.Mean(values, nil),
	}

	var muRR, muCC, muRC float64
	for k := range rows {
		dr, dc := rows[k]-r.RowCentroid, cols[k]-r.ColCentroid
		muRR += dr * dr
		muCC += dc * dc
		muRC += dr * dc
	}
	a, b, c := muCC/float64(n), -muRC/float64(n), muRR/float64(n)
	r.MajorAxisLength, r.MinorAxisLength = axisLengths(a, b, c)
	r.Orientation = orientation(a, b, c)

	grid := newRegionGrid(r, idx, width)
	r.Perimeter = grid.perimeter()
	r.ConvexArea = grid.convexArea()
	return r
}

// axisLengths returns the lengths of the ellipse with the same second
// moments as the region, from the eigenvalues of its inertia tensor.
func axisLengths(a, b, c float64) (major, minor float64) {
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(2, []float64{a, b, b, c}), false) {
		return 0, 0
	}
	vals := eig.Values(nil)
	return 4 * math.Sqrt(math.Max(vals[1], 0)), 4 * math.Sqrt(math.Max(vals[0], 0))
}

func orientation(a, b, c float64) float64 {
	if a-c == 0 {
		if b < 0 {
			return -math.Pi / 4
		}
		return math.Pi / 4
	}
	return 0.5 * math.Atan2(-2*b, c-a)
}
