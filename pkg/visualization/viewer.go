package visualization

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"floeseg/internal/models"
)

// DefaultQuicklookSize bounds the longest side of a quicklook.
const DefaultQuicklookSize = 1024

// Viewer renders a label image over its scene.
type Viewer struct {
	labels *models.LabelImage

	// background is drawn under unlabelled pixels, may be nil
	background *models.Raster

	// MaxSize bounds the longest side of rendered images
	MaxSize int
}

// NewViewer creates a viewer for labels drawn over background.
func NewViewer(labels *models.LabelImage, background *models.Raster) *Viewer {
	return &Viewer{labels: labels, background: background, MaxSize: DefaultQuicklookSize}
}

// LabelColor returns a stable, saturated color for a label.
func LabelColor(label int32) color.NRGBA {
	h := uint32(label) * 2654435761
	return color.NRGBA{
		R: uint8(64 + h>>24%192),
		G: uint8(64 + h>>16%192),
		B: uint8(64 + h>>8%192),
		A: 0xff,
	}
}

// Render draws every positive label in its own color over the background.
func (v *Viewer) Render() (*image.NRGBA, error) {
	w, h := v.labels.Width, v.labels.Height
	if v.background != nil {
		if err := models.CheckShape(v.labels.Dims(), v.background.Dims()); err != nil {
			return nil, errors.Wrap(err, "quicklook background")
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, label := range v.labels.Pix {
		var c color.NRGBA
		switch {
		case label > 0:
			c = LabelColor(label)
		case v.background != nil && len(v.background.Bands) >= 3:
			c = color.NRGBA{
				R: v.background.Bands[0][i] / 2,
				G: v.background.Bands[1][i] / 2,
				B: v.background.Bands[2][i] / 2,
				A: 0xff,
			}
		default:
			c = color.NRGBA{A: 0xff}
		}
		img.Pix[4*i], img.Pix[4*i+1], img.Pix[4*i+2], img.Pix[4*i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

// Quicklook renders the labels scaled down to fit MaxSize.
func (v *Viewer) Quicklook() (image.Image, error) {
	img, err := v.Render()
	if err != nil {
		return nil, err
	}
	if v.MaxSize <= 0 || (img.Bounds().Dx() <= v.MaxSize && img.Bounds().Dy() <= v.MaxSize) {
		return img, nil
	}
	return imaging.Fit(img, v.MaxSize, v.MaxSize, imaging.NearestNeighbor), nil
}

// SaveQuicklook writes the quicklook to filename; the format follows the
// extension.
func (v *Viewer) SaveQuicklook(filename string) error {
	img, err := v.Quicklook()
	if err != nil {
		return err
	}
	return errors.Wrapf(imaging.Save(img, filename), "save %s", filename)
}
