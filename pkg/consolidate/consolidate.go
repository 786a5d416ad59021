// Package consolidate cleans the final label image so that every floe label
// covers exactly one 8-connected region.
package consolidate

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"floeseg/internal/logger"
	"floeseg/internal/models"
	"floeseg/pkg/labeling"
	"floeseg/pkg/morphology"
)

// DefaultWarnFactor: a discarded blob larger than 1/DefaultWarnFactor of the
// kept blob is reported.
const DefaultWarnFactor = 5

var (
	// ErrBlobTie is returned when the two largest blobs of a label have the
	// same area.
	ErrBlobTie = errors.New("label has several largest blobs")

	// ErrNegativeLabel is returned for label images holding negative values.
	ErrNegativeLabel = errors.New("negative label")
)

type Consolidator struct {
	WarnFactor int
	Logger     logger.Logger
}

// New returns a consolidator with the default warning factor.
func New(log logger.Logger) *Consolidator {
	if log == nil {
		log = logger.Nop()
	}
	return &Consolidator{WarnFactor: DefaultWarnFactor, Logger: log}
}

// Open removes label structures thinner than the 3x3 cross.
func Open(labels *models.LabelImage) *models.LabelImage {
	return morphology.OpenLabels(labels, morphology.Cross())
}

// CheckNonNegative reports the first negative label.
func CheckNonNegative(labels *models.LabelImage) error {
	for i, v := range labels.Pix {
		if v < 0 {
			return errors.Wrapf(ErrNegativeLabel, "value %d at row %d col %d",
				v, i/labels.Width, i%labels.Width)
		}
	}
	return nil
}

type blob struct {
	id   int32
	area int
}

// RepairBlobs keeps only the largest 8-connected blob of each label and
// zeroes the others. Two largest blobs of equal area are an ErrBlobTie.
// The input is not modified.
func (c *Consolidator) RepairBlobs(labels *models.LabelImage) (*models.LabelImage, error) {
	if err := CheckNonNegative(labels); err != nil {
		return nil, err
	}

	regions, _ := labeling.LabelRegions(labels)
	owner := make(map[int32]int32)
	for i, r := range regions.Pix {
		if r != 0 {
			owner[r] = labels.Pix[i]
		}
	}
	blobs := make(map[int32][]blob)
	for region, area := range labeling.Areas(regions) {
		if region == 0 {
			continue
		}
		blobs[owner[region]] = append(blobs[owner[region]], blob{id: region, area: area})
	}

	drop := make(map[int32]bool)
	owners := lo.Keys(lo.PickBy(blobs, func(_ int32, b []blob) bool { return len(b) > 1 }))
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	for _, label := range owners {
		list := blobs[label]
		sort.Slice(list, func(i, j int) bool {
			if list[i].area != list[j].area {
				return list[i].area > list[j].area
			}
			return list[i].id < list[j].id
		})

		largest := list[0]
		for _, b := range list[1:] {
			if b.area >= largest.area {
				return nil, errors.Wrapf(ErrBlobTie, "label %d has two blobs of area %d", label, b.area)
			}
			if c.WarnFactor > 0 && b.area*c.WarnFactor > largest.area {
				c.log().Warning("consolidate", "discarding a large secondary blob", map[string]interface{}{
					"label":        label,
					"blob_area":    b.area,
					"largest_area": largest.area,
					"factor":       c.WarnFactor,
				})
			}
			drop[b.id] = true
		}
	}

	out := labels.Clone()
	if len(drop) == 0 {
		return out, nil
	}
	for i, region := range regions.Pix {
		if drop[region] {
			out.Pix[i] = 0
		}
	}
	return out, nil
}

// Consolidate opens the label image and repairs split labels, repeating
// until the image no longer changes. The tie check runs on the opened image,
// so blobs thinner than the cross vanish before they can tie.
//
// Opening never raises a value and repair only zeroes, so every round that
// changes the image lowers the sum of its labels and the loop terminates.
func (c *Consolidator) Consolidate(labels *models.LabelImage) (*models.LabelImage, error) {
	if err := CheckNonNegative(labels); err != nil {
		return nil, err
	}

	current := labels
	for {
		next, err := c.RepairBlobs(Open(current))
		if err != nil {
			return nil, err
		}
		if next.Equal(current) {
			return next, nil
		}
		current = next
	}
}

func (c *Consolidator) log() logger.Logger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger
}
