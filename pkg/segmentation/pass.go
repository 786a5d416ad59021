package segmentation

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"floeseg/internal/models"
	"floeseg/pkg/labeling"
	"floeseg/pkg/morphology"
	"floeseg/pkg/watershed"
)

const (
	// Unassigned marks pixels the watershed may still claim.
	Unassigned int32 = 0

	// NotFloe marks background and rejected regions during a pass.
	NotFloe int32 = 1
)

// Scene is the read-only per-scene input of the engine.
type Scene struct {
	// RGB is the true-color raster with land and cloud zeroed
	RGB *models.Raster

	Ice *models.Mask

	// Exclusion is the dilated land/cloud mask; floes touching it are dropped
	Exclusion *models.Mask
}

func (s Scene) validate() error {
	if s.RGB == nil || s.Ice == nil || s.Exclusion == nil {
		return errors.New("scene is incomplete")
	}
	return errors.Wrap(models.CheckShape(s.RGB.Dims(), s.Ice.Dims(), s.Exclusion.Dims()), "scene")
}

// Markers builds the watershed markers for one scale: confident seeds from
// the eroded residual labelled from 2 upward, the ring between the dilated
// and eroded residual left at 0, everything else 1, then grown by it grey
// dilations.
func Markers(residual *models.Mask, elem morphology.Element, it int) *models.LabelImage {
	eroded := morphology.FillHoles(morphology.Erode(residual, elem, it))
	dilated := morphology.Dilate(residual, elem, it)

	markers, _ := labeling.Label(eroded)
	unknown := dilated.AndNot(eroded)
	for i := range markers.Pix {
		if unknown.Pix[i] {
			markers.Pix[i] = Unassigned
		} else {
			markers.Pix[i]++
		}
	}

	for i := 0; i < it; i++ {
		markers = morphology.DilateLabels(markers, elem)
	}
	return markers
}

// Pass runs one scale of the segmentation on the residual ice and returns
// the filtered watershed labels: 1 for rejected pixels, -1 for ridges and
// values >= 2 for floes found at this scale.
func Pass(scene Scene, residual, claimed *models.Mask, elem morphology.Element, it int) (*models.LabelImage, error) {
	markers := Markers(residual, elem, it)

	ws, err := watershed.Transform(scene.RGB, markers)
	if err != nil {
		return nil, errors.Wrapf(err, "watershed at scale %d", it)
	}

	touching := make(map[int32]bool)
	for i, v := range ws.Pix {
		if v > NotFloe && scene.Exclusion.Pix[i] {
			touching[v] = true
		}
	}
	reject(ws, touching)

	for i, ok := range claimed.Pix {
		if !ok {
			ws.Pix[i] = NotFloe
		}
	}

	limit := it * it * it * it
	small := lo.PickBy(labeling.Areas(ws), func(label int32, area int) bool {
		return label > NotFloe && area < limit
	})
	reject(ws, lo.MapValues(small, func(int, int32) bool { return true }))

	return ws, nil
}

func reject(ws *models.LabelImage, labels map[int32]bool) {
	if len(labels) == 0 {
		return
	}
	for i, v := range ws.Pix {
		if labels[v] {
			ws.Pix[i] = NotFloe
		}
	}
}
