// Package threshold calibrates and applies the adaptive threshold that
// separates bright ice from dark open water.
package threshold

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

const (
	// FallbackMinCut is used when the histogram has no valley.
	FallbackMinCut = 100

	// fallbackMaxOffset is subtracted from the ice peak when no bin left
	// of it falls to half its height.
	fallbackMaxOffset = 10

	binStart = 1
	binStop  = 256
	binWidth = 5
)

// Calibration holds the histogram of a masked red band and the cuts derived
// from it.
type Calibration struct {
	// Min is the lower bound applied to the local threshold
	Min float64

	// Max is the upper bound applied to the local threshold
	Max float64

	// Edges are the bin edges, len(Counts)+1 of them
	Edges []float64

	Counts []float64

	Maxima []Extremum
	Minima []Extremum
}

// BinEdges returns the fixed histogram edges 1, 6, ..., 251.
func BinEdges() []float64 {
	return lo.Map(lo.RangeWithSteps(binStart, binStop, binWidth), func(v, _ int) float64 {
		return float64(v)
	})
}

// Histogram counts values into the bins delimited by edges. Every bin is
// half-open except the last, which includes its right edge; values outside
// the edges are dropped.
func Histogram(values []uint8, edges []float64) []float64 {
	counts := make([]float64, len(edges)-1)
	if len(counts) == 0 {
		return counts
	}
	first, last := edges[0], edges[len(edges)-1]
	for _, raw := range values {
		v := float64(raw)
		if v < first || v > last {
			continue
		}
		counts[binIndex(v, edges)]++
	}
	return counts
}

func binIndex(v float64, edges []float64) int {
	last := len(edges) - 2
	for i := 0; i < last; i++ {
		if v < edges[i+1] {
			return i
		}
	}
	return last
}

// Calibrate derives the threshold cuts from the red band of the masked scene.
//
// The minimum cut is the edge of the last histogram valley. The maximum cut
// is the last edge left of the final peak whose count is at most half that
// peak; it falls back to ten below the peak edge when no such edge exists
// beyond the first bin.
func Calibrate(redMasked []uint8) Calibration {
	edges := BinEdges()
	counts := Histogram(redMasked, edges)
	delta := 0.01 * stat.Mean(counts, nil)
	maxima, minima := PeakDetect(counts, delta)

	c := Calibration{
		Edges:  edges,
		Counts: counts,
		Maxima: maxima,
		Minima: minima,
	}

	peak := argmax(counts)
	if len(maxima) > 0 {
		peak = maxima[len(maxima)-1]
	}
	peakEdge := edges[peak.Pos]
	halfHeight := peak.Value / 2

	c.Min = FallbackMinCut
	if lo.SomeBy(minima, func(e Extremum) bool { return e.Pos != 0 || e.Value != 0 }) {
		c.Min = edges[minima[len(minima)-1].Pos]
	}

	c.Max = peakEdge - fallbackMaxOffset
	cut := -1
	for i, n := range counts {
		if edges[i] < peakEdge && n <= halfHeight {
			cut = i
		}
	}
	if cut > 0 {
		c.Max = edges[cut]
	}
	return c
}

// argmax returns the first highest bin.
func argmax(counts []float64) Extremum {
	best := Extremum{}
	for i, n := range counts {
		if i == 0 || n > best.Value {
			best = Extremum{Pos: i, Value: n}
		}
	}
	return best
}

// Clip bounds v to [low, high]. When low > high every value becomes high.
func Clip(v, low, high float64) float64 {
	if v < low {
		v = low
	}
	if v > high {
		v = high
	}
	return v
}
