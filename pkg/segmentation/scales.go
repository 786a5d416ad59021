package segmentation

import (
	"github.com/pkg/errors"
)

// ErrInvalidScaleSequence is returned for a scale sequence that is empty,
// has a zero step, runs against its step or contains negative scales.
var ErrInvalidScaleSequence = errors.New("invalid scale sequence")

// ScaleSequence returns the erosion iteration counts from itmax to itmin
// inclusive, moving by step.
func ScaleSequence(itmax, itmin, step int) ([]int, error) {
	switch {
	case step == 0:
		return nil, errors.Wrap(ErrInvalidScaleSequence, "step must not be zero")
	case itmax < 0 || itmin < 0:
		return nil, errors.Wrapf(ErrInvalidScaleSequence, "scales must be non-negative, got %d..%d", itmax, itmin)
	case itmax > itmin && step > 0, itmax < itmin && step < 0:
		return nil, errors.Wrapf(ErrInvalidScaleSequence,
			"step %d does not lead from %d to %d", step, itmax, itmin)
	}

	var scales []int
	if step < 0 {
		for it := itmax; it >= itmin; it += step {
			scales = append(scales, it)
		}
	} else {
		for it := itmax; it <= itmin; it += step {
			scales = append(scales, it)
		}
	}
	return scales, nil
}
