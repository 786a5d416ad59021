package morphology

import (
	"floeseg/internal/models"
)

// Erode applies binary erosion iterations times. Pixels outside the grid are
// treated as foreground, so objects touching the frame are not eaten from
// the outside.
func Erode(m *models.Mask, e Element, iterations int) *models.Mask {
	out := m.Clone()
	for i := 0; i < iterations; i++ {
		out = erodeOnce(out, e)
	}
	return out
}

func erodeOnce(m *models.Mask, e Element) *models.Mask {
	w, h := m.Width, m.Height
	out := models.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.Pix[y*w+x] {
				continue
			}
			keep := true
			for _, o := range e.Offsets {
				nx, ny := x+o.DX, y+o.DY
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if !m.Pix[ny*w+nx] {
					keep = false
					break
				}
			}
			out.Pix[y*w+x] = keep
		}
	}
	return out
}

// Dilate applies binary dilation iterations times. Pixels outside the grid
// are treated as background.
func Dilate(m *models.Mask, e Element, iterations int) *models.Mask {
	out := m.Clone()
	for i := 0; i < iterations; i++ {
		out = dilateOnce(out, e)
	}
	return out
}

func dilateOnce(m *models.Mask, e Element) *models.Mask {
	w, h := m.Width, m.Height
	out := models.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for _, o := range e.Offsets {
				nx, ny := x+o.DX, y+o.DY
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if m.Pix[ny*w+nx] {
					out.Pix[y*w+x] = true
					break
				}
			}
		}
	}
	return out
}

// DilateLabels is a grey-level (max) dilation of a label grid. Neighbours
// outside the grid are ignored.
func DilateLabels(l *models.LabelImage, e Element) *models.LabelImage {
	return rankFilter(l, e, func(a, b int32) bool { return b > a })
}

// ErodeLabels is a grey-level (min) erosion of a label grid. Neighbours
// outside the grid are ignored.
func ErodeLabels(l *models.LabelImage, e Element) *models.LabelImage {
	return rankFilter(l, e, func(a, b int32) bool { return b < a })
}

// OpenLabels erodes then dilates a label grid with the same element.
func OpenLabels(l *models.LabelImage, e Element) *models.LabelImage {
	return DilateLabels(ErodeLabels(l, e), e)
}

// rankFilter keeps, for every pixel, the neighbour value preferred by better.
func rankFilter(l *models.LabelImage, e Element, better func(cur, cand int32) bool) *models.LabelImage {
	w, h := l.Width, l.Height
	out := models.NewLabelImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := l.Pix[y*w+x]
			for _, o := range e.Offsets {
				nx, ny := x+o.DX, y+o.DY
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if c := l.Pix[ny*w+nx]; better(v, c) {
					v = c
				}
			}
			out.Pix[y*w+x] = v
		}
	}
	return out
}

// FillHoles sets every background pixel that cannot be reached from the grid
// frame through 4-connected background pixels.
func FillHoles(m *models.Mask) *models.Mask {
	w, h := m.Width, m.Height
	out := models.NewMask(w, h)
	for i := range out.Pix {
		out.Pix[i] = true
	}
	if w == 0 || h == 0 {
		return out
	}

	stack := make([]int, 0, 2*(w+h))
	push := func(x, y int) {
		i := y*w + x
		if !m.Pix[i] && out.Pix[i] {
			out.Pix[i] = false
			stack = append(stack, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return out
}
