// Package masking derives the binary land, cloud and ice masks of a scene
// and applies them to the true-color raster.
package masking

import (
	"github.com/pkg/errors"

	"floeseg/internal/models"
	"floeseg/pkg/morphology"
)

// DefaultDilationRadius is the diamond radius used to grow the land/cloud
// mask before floes adjacent to it are rejected.
const DefaultDilationRadius = 10

// Builder derives the per-scene masks.
type Builder struct {
	// CloudThreshold: a pixel is cloud when band 0 of the cloud raster exceeds it
	CloudThreshold uint8

	// LandThreshold: a pixel is land when band 0 of the land raster exceeds it
	LandThreshold uint8

	// DilationRadius is the diamond radius applied to the land/cloud union
	DilationRadius int
}

// NewBuilder returns a builder with the default thresholds.
func NewBuilder() *Builder {
	return &Builder{DilationRadius: DefaultDilationRadius}
}

// Masks bundles the masks of one scene.
type Masks struct {
	Cloud *models.Mask
	Land  *models.Mask

	// LandCloud is the union of land and cloud
	LandCloud *models.Mask

	// LandCloudDilated is LandCloud grown by the builder's diamond
	LandCloudDilated *models.Mask
}

// CloudMask thresholds band 0 of the cloud raster.
func (b *Builder) CloudMask(cloud *models.Raster) (*models.Mask, error) {
	return thresholdBand(cloud, b.CloudThreshold, "cloud")
}

// LandMask thresholds band 0 of the land raster.
func (b *Builder) LandMask(land *models.Raster) (*models.Mask, error) {
	return thresholdBand(land, b.LandThreshold, "land")
}

func thresholdBand(r *models.Raster, threshold uint8, role string) (*models.Mask, error) {
	if len(r.Bands) == 0 {
		return nil, errors.Errorf("%s raster has no bands", role)
	}
	m := models.NewMask(r.Width, r.Height)
	for i, v := range r.Bands[0] {
		m.Pix[i] = v > threshold
	}
	return m, nil
}

// Build derives every mask of a scene from a precomputed land mask and the
// scene's cloud raster. The land mask is only read, so it can be shared by
// concurrent scenes.
func (b *Builder) Build(land *models.Mask, cloud *models.Raster) (*Masks, error) {
	if err := models.CheckShape(land.Dims(), cloud.Dims()); err != nil {
		return nil, errors.Wrap(err, "land mask vs cloud raster")
	}
	cloudMask, err := b.CloudMask(cloud)
	if err != nil {
		return nil, err
	}
	union := land.Or(cloudMask)
	return &Masks{
		Cloud:            cloudMask,
		Land:             land,
		LandCloud:        union,
		LandCloudDilated: morphology.Dilate(union, morphology.Diamond(b.DilationRadius), 1),
	}, nil
}

// ApplyToRGB returns a copy of rgb whose masked pixels are zero in every band.
func ApplyToRGB(rgb *models.Raster, mask *models.Mask) (*models.Raster, error) {
	if err := models.CheckShape(rgb.Dims(), mask.Dims()); err != nil {
		return nil, errors.Wrap(err, "apply mask")
	}
	out := rgb.Clone()
	for i, masked := range mask.Pix {
		if !masked {
			continue
		}
		for _, band := range out.Bands {
			band[i] = 0
		}
	}
	return out, nil
}

// Coverage summarises the ice mask against the unmasked area of a scene.
type Coverage struct {
	// Ice is the number of ice pixels
	Ice int

	// Unmasked is the number of pixels that are neither land nor cloud
	Unmasked int

	// Ratio is Ice / Unmasked, 0 when nothing is unmasked
	Ratio float64
}

// ComputeCoverage counts ice pixels and unmasked pixels.
func ComputeCoverage(landCloud, ice *models.Mask) Coverage {
	c := Coverage{
		Ice:      ice.Count(),
		Unmasked: len(landCloud.Pix) - landCloud.Count(),
	}
	if c.Unmasked > 0 {
		c.Ratio = float64(c.Ice) / float64(c.Unmasked)
	}
	return c
}
