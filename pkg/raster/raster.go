// Package raster reads and writes scene rasters as TIFF files.
package raster

import (
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"floeseg/internal/models"
)

// ErrLabelRange is returned when a label image does not fit in 16 bits.
var ErrLabelRange = errors.New("labels do not fit in an unsigned 16-bit raster")

var encodeOptions = &tiff.Options{Compression: tiff.Deflate, Predictor: true}

// Read loads a TIFF file. Color images yield three bands with any alpha
// channel dropped; gray images yield one band. 16-bit samples are reduced to
// their high byte.
func Read(path string) (*models.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open raster")
	}
	defer f.Close()

	r, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	r.Profile.Path = path
	return r, nil
}

// Decode reads a TIFF image from r.
func Decode(r io.Reader) (*models.Raster, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// FromImage converts an image to a raster.
func FromImage(img image.Image) *models.Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		out := models.NewRaster(w, h, 1)
		for y := 0; y < h; y++ {
			copy(out.Bands[0][y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return out
	case *image.Gray16:
		out := models.NewRaster(w, h, 1)
		out.Profile.BitsPerSample = 16
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Bands[0][y*w+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out
	case *image.NRGBA:
		out := models.NewRaster(w, h, 3)
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < w; x++ {
				for c := 0; c < 3; c++ {
					out.Bands[c][y*w+x] = row[4*x+c]
				}
			}
		}
		return out
	}

	out := models.NewRaster(w, h, 3)
	if _, ok := img.(*image.RGBA64); ok {
		out.Profile.BitsPerSample = 16
	}
	if _, ok := img.(*image.NRGBA64); ok {
		out.Profile.BitsPerSample = 16
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := y*w + x
			out.Bands[0][i], out.Bands[1][i], out.Bands[2][i] = c.R, c.G, c.B
		}
	}
	return out
}

// ToImage converts a raster to an image: one band becomes gray, three or
// more become opaque RGB.
func ToImage(r *models.Raster) (image.Image, error) {
	rect := image.Rect(0, 0, r.Width, r.Height)
	switch {
	case len(r.Bands) == 1:
		img := image.NewGray(rect)
		copy(img.Pix, r.Bands[0])
		return img, nil
	case len(r.Bands) >= 3:
		img := image.NewNRGBA(rect)
		for i := 0; i < r.Width*r.Height; i++ {
			img.Pix[4*i] = r.Bands[0][i]
			img.Pix[4*i+1] = r.Bands[1][i]
			img.Pix[4*i+2] = r.Bands[2][i]
			img.Pix[4*i+3] = 0xff
		}
		return img, nil
	default:
		return nil, errors.Errorf("cannot write a raster with %d bands", len(r.Bands))
	}
}

// MaskImage renders a mask as a gray image with values 0 and 1.
func MaskImage(m *models.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			img.Pix[i] = 1
		}
	}
	return img
}

// LabelImage renders labels with the smallest unsigned sample size that
// holds them. Negative labels are written as 0 when clampNegative is set and
// rejected otherwise.
func LabelImage(l *models.LabelImage, clampNegative bool) (image.Image, error) {
	if !clampNegative {
		if lowest := l.Min(); lowest < 0 {
			return nil, errors.Errorf("label image holds negative value %d", lowest)
		}
	}
	highest := l.Max()
	rect := image.Rect(0, 0, l.Width, l.Height)

	switch {
	case highest <= math.MaxUint8:
		img := image.NewGray(rect)
		for i, v := range l.Pix {
			if v > 0 {
				img.Pix[i] = uint8(v)
			}
		}
		return img, nil
	case highest <= math.MaxUint16:
		img := image.NewGray16(rect)
		for i, v := range l.Pix {
			if v > 0 {
				img.Pix[2*i] = uint8(v >> 8)
				img.Pix[2*i+1] = uint8(v)
			}
		}
		return img, nil
	default:
		return nil, errors.Wrapf(ErrLabelRange, "max label %d", highest)
	}
}

// Encode writes img as a deflate-compressed TIFF.
func Encode(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, encodeOptions)
}

func write(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create raster")
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// WriteRaster writes r to path.
func WriteRaster(path string, r *models.Raster) error {
	img, err := ToImage(r)
	if err != nil {
		return err
	}
	return write(path, img)
}

// WriteMask writes m to path as 0/1 gray samples.
func WriteMask(path string, m *models.Mask) error {
	return write(path, MaskImage(m))
}

// WriteLabels writes l to path with the smallest sample size that holds it.
func WriteLabels(path string, l *models.LabelImage, clampNegative bool) error {
	img, err := LabelImage(l, clampNegative)
	if err != nil {
		return err
	}
	return write(path, img)
}
