package threshold

import "math"

// Extremum is a detected peak or valley of a series.
type Extremum struct {
	Pos   int
	Value float64
}

// PeakDetect finds local maxima and minima of v. A point is a maximum when
// it is the highest since the last minimum and the series then drops more
// than delta below it; minima are symmetric. Positions are indices into v.
func PeakDetect(v []float64, delta float64) (maxima, minima []Extremum) {
	mn, mx := math.Inf(1), math.Inf(-1)
	mnPos, mxPos := -1, -1
	lookForMax := true

	for i, this := range v {
		if this > mx {
			mx, mxPos = this, i
		}
		if this < mn {
			mn, mnPos = this, i
		}

		if lookForMax {
			if this < mx-delta {
				maxima = append(maxima, Extremum{Pos: mxPos, Value: mx})
				mn, mnPos = this, i
				lookForMax = false
			}
		} else if this > mn+delta {
			minima = append(minima, Extremum{Pos: mnPos, Value: mn})
			mx, mxPos = this, i
			lookForMax = true
		}
	}
	return maxima, minima
}
