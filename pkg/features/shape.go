package features

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// regionGrid is the binary image of one region cropped to its bounding box
// with a one pixel zero margin.
type regionGrid struct {
	w, h       int
	row0, col0 int
	pix        []bool
}

func newRegionGrid(r Region, idx []int, width int) *regionGrid {
	g := &regionGrid{
		w:    r.MaxCol - r.MinCol + 2,
		h:    r.MaxRow - r.MinRow + 2,
		row0: r.MinRow - 1,
		col0: r.MinCol - 1,
	}
	g.pix = make([]bool, g.w*g.h)
	for _, i := range idx {
		g.pix[(i/width-g.row0)*g.w+(i%width-g.col0)] = true
	}
	return g
}

func (g *regionGrid) at(x, y int) bool {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return false
	}
	return g.pix[y*g.w+x]
}

var perimeterWeights = func() [50]float64 {
	var w [50]float64
	for _, i := range []int{5, 7, 15, 17, 25, 27} {
		w[i] = 1
	}
	w[21], w[33] = math.Sqrt2, math.Sqrt2
	w[13], w[23] = (1+math.Sqrt2)/2, (1+math.Sqrt2)/2
	return w
}()

// perimeter estimates the contour length from the region's 4-connected
// border pixels, weighting each by the configuration of its border
// neighbours.
func (g *regionGrid) perimeter() float64 {
	border := make([]bool, len(g.pix))
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if !g.at(x, y) {
				continue
			}
			interior := g.at(x-1, y) && g.at(x+1, y) && g.at(x, y-1) && g.at(x, y+1)
			border[y*g.w+x] = !interior
		}
	}
	isBorder := func(x, y int) bool {
		if x < 0 || y < 0 || x >= g.w || y >= g.h {
			return false
		}
		return border[y*g.w+x]
	}

	var total float64
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if !border[y*g.w+x] {
				continue
			}
			code := 1
			for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				if isBorder(x+d[0], y+d[1]) {
					code += 2
				}
			}
			for _, d := range [][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
				if isBorder(x+d[0], y+d[1]) {
					code += 10
				}
			}
			total += perimeterWeights[code]
		}
	}
	return total
}

// convexArea counts pixel centres inside the convex hull of the region's
// pixel edge midpoints, boundary included.
func (g *regionGrid) convexArea() int {
	var pts []orb.Point
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if !g.at(x, y) {
				continue
			}
			fx, fy := float64(x), float64(y)
			pts = append(pts,
				orb.Point{fx - 0.5, fy}, orb.Point{fx + 0.5, fy},
				orb.Point{fx, fy - 0.5}, orb.Point{fx, fy + 0.5})
		}
	}

	hull := convexHull(pts)
	bound := hull.Bound()
	count := 0
	for y := int(math.Ceil(bound.Min.Y())); float64(y) <= bound.Max.Y(); y++ {
		for x := int(math.Ceil(bound.Min.X())); float64(x) <= bound.Max.X(); x++ {
			if inConvex(hull, orb.Point{float64(x), float64(y)}) {
				count++
			}
		}
	}
	return count
}

func cross(o, a, b orb.Point) float64 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

// convexHull returns the counter-clockwise hull of pts as an open ring
// (monotone chain).
func convexHull(pts []orb.Point) orb.Ring {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X() != pts[j].X() {
			return pts[i].X() < pts[j].X()
		}
		return pts[i].Y() < pts[j].Y()
	})
	pts = dedupe(pts)
	if len(pts) < 3 {
		return orb.Ring(pts)
	}

	hull := make(orb.Ring, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func dedupe(pts []orb.Point) []orb.Point {
	out := pts[:0]
	for i, p := range pts {
		if i == 0 || !p.Equal(pts[i-1]) {
			out = append(out, p)
		}
	}
	return out
}

const hullTolerance = 1e-10

func inConvex(hull orb.Ring, p orb.Point) bool {
	n := len(hull)
	for i := 0; i < n; i++ {
		if cross(hull[i], hull[(i+1)%n], p) < -hullTolerance {
			return false
		}
	}
	return true
}
