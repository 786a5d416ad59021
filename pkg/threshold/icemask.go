package threshold

import (
	"github.com/pkg/errors"

	"floeseg/internal/models"
)

// Generator builds the binary ice mask of a scene.
type Generator struct {
	BlockSize int
	Method    Method
}

// NewGenerator returns a Gaussian generator with the default block size.
func NewGenerator() *Generator {
	return &Generator{BlockSize: DefaultBlockSize, Method: Gaussian}
}

// Result is the output of Generate.
type Result struct {
	// Local is the unclipped local threshold of the unmasked red band
	Local []float64

	Calibration Calibration

	// Ice marks pixels of the masked red band above the clipped threshold
	Ice *models.Mask
}

// Generate thresholds the red band of masked against a local threshold of
// the red band of raw, clipped to the cuts calibrated on masked.
func (g *Generator) Generate(raw, masked *models.Raster) (*Result, error) {
	if err := models.CheckShape(raw.Dims(), masked.Dims()); err != nil {
		return nil, errors.Wrap(err, "raw vs masked scene")
	}
	if len(raw.Bands) == 0 || len(masked.Bands) == 0 {
		return nil, errors.New("scene has no bands")
	}

	local, err := Local(raw.Bands[0], raw.Width, raw.Height, g.BlockSize, g.Method)
	if err != nil {
		return nil, errors.Wrap(err, "local threshold")
	}
	red := masked.Bands[0]
	cal := Calibrate(red)
	ice, err := IceMask(red, local, cal, masked.Width, masked.Height)
	if err != nil {
		return nil, err
	}
	return &Result{Local: local, Calibration: cal, Ice: ice}, nil
}

// IceMask marks each pixel whose red value exceeds its local threshold
// clipped to the calibration cuts.
func IceMask(red []uint8, local []float64, cal Calibration, width, height int) (*models.Mask, error) {
	if len(red) != width*height || len(local) != len(red) {
		return nil, errors.Wrapf(models.ErrShapeMismatch, "red %d, threshold %d, grid %dx%d",
			len(red), len(local), width, height)
	}
	m := models.NewMask(width, height)
	for i, v := range red {
		m.Pix[i] = float64(v) > Clip(local[i], cal.Min, cal.Max)
	}
	return m, nil
}
