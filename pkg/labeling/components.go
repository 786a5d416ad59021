// Package labeling finds 8-connected components in binary masks and label
// grids and measures per-label pixel areas.
package labeling

import (
	"github.com/theodesp/unionfind"

	"floeseg/internal/models"
)

// Label numbers the 8-connected components of the true pixels of m. Labels
// run from 1 to n in raster order of each component's first pixel;
// background is 0.
func Label(m *models.Mask) (*models.LabelImage, int) {
	return components(m.Width, m.Height, func(i, j int) bool {
		return m.Pix[i] && m.Pix[j]
	}, func(i int) bool { return m.Pix[i] })
}

// LabelRegions splits every nonzero label of l into its 8-connected pieces.
// Two pixels are joined only when they carry the same label. The result is
// numbered 1..n in raster order; background stays 0.
func LabelRegions(l *models.LabelImage) (*models.LabelImage, int) {
	return components(l.Width, l.Height, func(i, j int) bool {
		return l.Pix[i] == l.Pix[j]
	}, func(i int) bool { return l.Pix[i] != 0 })
}

// components is a two-pass connected component labeling: provisional labels
// from the already-visited W, NW, N and NE neighbours, equivalences merged
// in a union-find, then a second pass that renumbers roots in scan order.
func components(w, h int, joined func(i, j int) bool, fg func(i int) bool) (*models.LabelImage, int) {
	out := models.NewLabelImage(w, h)
	if w == 0 || h == 0 {
		return out, 0
	}

	// Provisional labels never outnumber the pixels.
	uf := unionfind.New(w*h + 1)
	provisional := make([]int32, w*h)
	var next int32 = 1

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !fg(i) {
				continue
			}
			var assigned int32
			visit := func(nx, ny int) {
				if nx < 0 || nx >= w || ny < 0 {
					return
				}
				j := ny*w + nx
				if provisional[j] == 0 || !joined(i, j) {
					return
				}
				if assigned == 0 {
					assigned = provisional[j]
					return
				}
				uf.Union(int(assigned), int(provisional[j]))
			}
			visit(x-1, y)
			visit(x-1, y-1)
			visit(x, y-1)
			visit(x+1, y-1)

			if assigned == 0 {
				assigned = next
				next++
			}
			provisional[i] = assigned
		}
	}

	final := make(map[int]int32)
	var n int32
	for i, p := range provisional {
		if p == 0 {
			continue
		}
		root := uf.Root(int(p))
		id, ok := final[root]
		if !ok {
			n++
			id = n
			final[root] = id
		}
		out.Pix[i] = id
	}
	return out, int(n)
}

// Areas returns the pixel count of every nonzero label.
func Areas(l *models.LabelImage) map[int32]int {
	areas := make(map[int32]int)
	for _, v := range l.Pix {
		if v != 0 {
			areas[v]++
		}
	}
	return areas
}
