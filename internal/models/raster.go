package models

import (
	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned when grids that must be co-registered differ
// in width or height.
var ErrShapeMismatch = errors.New("grid shapes do not match")

// Profile carries the metadata of a source raster that is passed through to
// every raster written for the same scene. The core never interprets it.
type Profile struct {
	// Path is the file the raster was read from
	Path string

	// Width and Height are the raster dimensions in pixels
	Width, Height int

	// Count is the number of bands in the source file
	Count int

	// BitsPerSample is the sample size of the source file (8 or 16)
	BitsPerSample int
}

// Raster is a banded grid of 8-bit samples stored row-major, one plane per band.
type Raster struct {
	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Bands holds one plane of Width*Height samples per band
	Bands [][]uint8

	// Profile is the georeferencing/profile metadata of the source
	Profile Profile
}

// NewRaster allocates a zeroed raster with the given number of bands.
func NewRaster(width, height, bands int) *Raster {
	r := &Raster{
		Width:  width,
		Height: height,
		Bands:  make([][]uint8, bands),
		Profile: Profile{
			Width:         width,
			Height:        height,
			Count:         bands,
			BitsPerSample: 8,
		},
	}
	for b := range r.Bands {
		r.Bands[b] = make([]uint8, width*height)
	}
	return r
}

// Band returns the plane for band b.
func (r *Raster) Band(b int) []uint8 {
	return r.Bands[b]
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	c := &Raster{
		Width:   r.Width,
		Height:  r.Height,
		Bands:   make([][]uint8, len(r.Bands)),
		Profile: r.Profile,
	}
	for b, plane := range r.Bands {
		c.Bands[b] = append([]uint8(nil), plane...)
	}
	return c
}

// Mask is a binary grid. A true pixel is masked out (land, cloud, ice,
// depending on the role the mask plays).
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an all-false mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// At reports the value at row y, column x.
func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x]
}

// Set assigns the value at row y, column x.
func (m *Mask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of true pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	return &Mask{Width: m.Width, Height: m.Height, Pix: append([]bool(nil), m.Pix...)}
}

// Or returns the pixel-wise union of m and o.
func (m *Mask) Or(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range m.Pix {
		out.Pix[i] = m.Pix[i] || o.Pix[i]
	}
	return out
}

// And returns the pixel-wise intersection of m and o.
func (m *Mask) And(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range m.Pix {
		out.Pix[i] = m.Pix[i] && o.Pix[i]
	}
	return out
}

// AndNot returns the pixels set in m and not in o.
func (m *Mask) AndNot(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range m.Pix {
		out.Pix[i] = m.Pix[i] && !o.Pix[i]
	}
	return out
}

// Not returns the complement of m.
func (m *Mask) Not() *Mask {
	out := NewMask(m.Width, m.Height)
	for i, v := range m.Pix {
		out.Pix[i] = !v
	}
	return out
}

// LabelImage is an integer grid of region identifiers. 0 is background.
type LabelImage struct {
	Width  int
	Height int
	Pix    []int32
}

// NewLabelImage allocates an all-zero label image.
func NewLabelImage(width, height int) *LabelImage {
	return &LabelImage{Width: width, Height: height, Pix: make([]int32, width*height)}
}

// LabelImageFromRows builds a label image from a row-major literal. All rows
// must have the same length.
func LabelImageFromRows(rows [][]int32) *LabelImage {
	if len(rows) == 0 {
		return NewLabelImage(0, 0)
	}
	l := NewLabelImage(len(rows[0]), len(rows))
	for y, row := range rows {
		copy(l.Pix[y*l.Width:(y+1)*l.Width], row)
	}
	return l
}

// Rows returns the label image as a slice of rows.
func (l *LabelImage) Rows() [][]int32 {
	rows := make([][]int32, l.Height)
	for y := range rows {
		rows[y] = append([]int32(nil), l.Pix[y*l.Width:(y+1)*l.Width]...)
	}
	return rows
}

// At returns the label at row y, column x.
func (l *LabelImage) At(x, y int) int32 {
	return l.Pix[y*l.Width+x]
}

// Clone returns a deep copy of the label image.
func (l *LabelImage) Clone() *LabelImage {
	return &LabelImage{Width: l.Width, Height: l.Height, Pix: append([]int32(nil), l.Pix...)}
}

// Max returns the largest label, or 0 for an empty image.
func (l *LabelImage) Max() int32 {
	var m int32
	for i, v := range l.Pix {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest label, or 0 for an empty image.
func (l *LabelImage) Min() int32 {
	var m int32
	for i, v := range l.Pix {
		if i == 0 || v < m {
			m = v
		}
	}
	return m
}

// Equal reports whether two label images have the same shape and values.
func (l *LabelImage) Equal(o *LabelImage) bool {
	if l.Width != o.Width || l.Height != o.Height {
		return false
	}
	for i, v := range l.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// CheckShape returns ErrShapeMismatch unless every (width, height) pair
// matches the first one.
func CheckShape(dims ...[2]int) error {
	if len(dims) == 0 {
		return nil
	}
	for _, d := range dims[1:] {
		if d != dims[0] {
			return errors.Wrapf(ErrShapeMismatch, "%dx%d vs %dx%d", dims[0][0], dims[0][1], d[0], d[1])
		}
	}
	return nil
}

// Dims returns the (width, height) pair of the raster.
func (r *Raster) Dims() [2]int { return [2]int{r.Width, r.Height} }

// Dims returns the (width, height) pair of the mask.
func (m *Mask) Dims() [2]int { return [2]int{m.Width, m.Height} }

// Dims returns the (width, height) pair of the label image.
func (l *LabelImage) Dims() [2]int { return [2]int{l.Width, l.Height} }
