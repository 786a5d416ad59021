// Package morphology implements the binary and grey-level morphology used by
// the floe segmentation: structuring elements, erosion, dilation, opening and
// hole filling over flat row-major grids.
package morphology

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Offset is a structuring element member relative to its anchor.
type Offset struct {
	DX, DY int
}

// Element is a flat structuring element.
type Element struct {
	// Name describes the element, e.g. "diamond(1)"
	Name string

	// Size is the side length of the square kernel the element lives in
	Size int

	// Offsets are the member pixels relative to the anchor at (Size/2, Size/2)
	Offsets []Offset
}

// Diamond returns the diamond of the given radius: every pixel whose city-block
// distance from the centre is at most radius.
func Diamond(radius int) Element {
	if radius < 0 {
		radius = 0
	}
	e := Element{Name: "diamond(" + strconv.Itoa(radius) + ")", Size: 2*radius + 1}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if abs(dx)+abs(dy) <= radius {
				e.Offsets = append(e.Offsets, Offset{DX: dx, DY: dy})
			}
		}
	}
	return e
}

// Cross is the 3x3 cross, the minimal 4-connected element.
func Cross() Element {
	e := Diamond(1)
	e.Name = "cross"
	return e
}

// Ellipse returns an ellipse inscribed in a size x size kernel, rasterised
// row by row the way OpenCV's MORPH_ELLIPSE does it. The anchor is size/2.
func Ellipse(size int) Element {
	if size < 1 {
		size = 1
	}
	e := Element{Name: "ellipse(" + strconv.Itoa(size) + ")", Size: size}
	r := size / 2
	c := size / 2
	invR2 := 0.0
	if r > 0 {
		invR2 = 1 / float64(r*r)
	}
	anchor := size / 2
	for i := 0; i < size; i++ {
		dy := i - r
		if abs(dy) > r {
			continue
		}
		dx := int(math.RoundToEven(float64(c) * math.Sqrt(float64(r*r-dy*dy)*invR2)))
		j1 := max(c-dx, 0)
		j2 := min(c+dx+1, size)
		for j := j1; j < j2; j++ {
			e.Offsets = append(e.Offsets, Offset{DX: j - anchor, DY: i - anchor})
		}
	}
	return e
}

// NewElement builds an element from its configuration name ("diamond" or
// "ellipse") and size.
func NewElement(kind string, size int) (Element, error) {
	switch strings.ToLower(kind) {
	case "diamond":
		if size < 0 {
			return Element{}, errors.Errorf("diamond radius must be non-negative, got %d", size)
		}
		return Diamond(size), nil
	case "ellipse":
		if size < 1 {
			return Element{}, errors.Errorf("ellipse size must be positive, got %d", size)
		}
		return Ellipse(size), nil
	default:
		return Element{}, errors.Errorf("unknown structuring element %q (want diamond or ellipse)", kind)
	}
}

// Grid renders the element as a Size x Size boolean kernel.
func (e Element) Grid() [][]bool {
	g := make([][]bool, e.Size)
	for i := range g {
		g[i] = make([]bool, e.Size)
	}
	a := e.Size / 2
	for _, o := range e.Offsets {
		g[o.DY+a][o.DX+a] = true
	}
	return g
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
