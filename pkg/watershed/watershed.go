// Package watershed implements a marker-constrained watershed over a
// three-band 8-bit raster with the flooding order used by OpenCV: pixels
// are processed through 256 FIFO queues keyed by the largest per-band
// absolute difference to the neighbour that queued them.
package watershed

import (
	"github.com/pkg/errors"

	"floeseg/internal/models"
)

// Ridge is the value written to pixels where two basins meet, and to the
// one-pixel frame around the image.
const Ridge int32 = -1

const (
	inQueue int32 = -2
	levels        = 256
)

type fifo struct {
	items []int
	head  int
}

func (q *fifo) empty() bool { return q.head == len(q.items) }

func (q *fifo) push(i int) { q.items = append(q.items, i) }

func (q *fifo) pop() int {
	i := q.items[q.head]
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return i
}

// Transform floods markers over img. Positive marker values are seeds, 0 is
// unknown. The returned grid assigns every reachable unknown pixel to a
// seed label and marks ridges and the image frame with Ridge.
func Transform(img *models.Raster, markers *models.LabelImage) (*models.LabelImage, error) {
	if len(img.Bands) < 3 {
		return nil, errors.Errorf("watershed needs a 3-band raster, got %d bands", len(img.Bands))
	}
	if err := models.CheckShape(img.Dims(), markers.Dims()); err != nil {
		return nil, errors.Wrap(err, "watershed")
	}

	w, h := markers.Width, markers.Height
	out := markers.Clone()
	if w == 0 || h == 0 {
		return out, nil
	}
	m := out.Pix
	r, g, b := img.Bands[0], img.Bands[1], img.Bands[2]

	diff := func(p, q int) int {
		d := absDiff(r[p], r[q])
		if t := absDiff(g[p], g[q]); t > d {
			d = t
		}
		if t := absDiff(b[p], b[q]); t > d {
			d = t
		}
		return d
	}

	for x := 0; x < w; x++ {
		m[x] = Ridge
		m[(h-1)*w+x] = Ridge
	}
	for y := 0; y < h; y++ {
		m[y*w] = Ridge
		m[y*w+w-1] = Ridge
	}

	var queues [levels]fifo
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if m[i] < 0 {
				m[i] = 0
			}
			if m[i] != 0 {
				continue
			}
			if m[i-1] <= 0 && m[i+1] <= 0 && m[i-w] <= 0 && m[i+w] <= 0 {
				continue
			}
			idx := levels
			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if m[n] > 0 {
					idx = min(idx, diff(i, n))
				}
			}
			queues[idx].push(i)
			m[i] = inQueue
		}
	}

	active := 0
	for active < levels && queues[active].empty() {
		active++
	}
	if active == levels {
		return out, nil
	}

	for {
		if queues[active].empty() {
			next := active + 1
			for next < levels && queues[next].empty() {
				next++
			}
			if next == levels {
				break
			}
			active = next
		}

		i := queues[active].pop()
		var lab int32
		for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
			t := m[n]
			if t <= 0 {
				continue
			}
			if lab == 0 {
				lab = t
			} else if t != lab {
				lab = Ridge
			}
		}
		if lab == 0 {
			return nil, errors.Errorf("watershed: queued pixel %d has no labeled neighbour", i)
		}
		m[i] = lab
		if lab == Ridge {
			continue
		}

		for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
			if m[n] != 0 {
				continue
			}
			t := diff(i, n)
			queues[t].push(n)
			active = min(active, t)
			m[n] = inQueue
		}
	}
	return out, nil
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
