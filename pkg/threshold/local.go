package threshold

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Method selects how the local neighbourhood of a pixel is summarised.
type Method string

const (
	Gaussian Method = "gaussian"
	Mean     Method = "mean"
	Median   Method = "median"
)

// DefaultBlockSize is the side of the square neighbourhood used for the
// local threshold.
const DefaultBlockSize = 399

// directRadius is the largest Gaussian radius filtered without the FFT.
const directRadius = 32

var ErrBlockSize = errors.New("block size must be odd and at least 3")

// ParseMethod resolves a method name, case-insensitively. An empty name
// selects Gaussian.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return Gaussian, nil
	case Gaussian, Mean, Median:
		return m, nil
	default:
		return "", errors.Errorf("unknown threshold method %q", name)
	}
}

// Local computes the per-pixel local threshold of a width x height band.
// Borders are handled by mirror reflection including the edge pixel.
func Local(band []uint8, width, height, blockSize int, method Method) ([]float64, error) {
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, errors.Wrapf(ErrBlockSize, "got %d", blockSize)
	}
	if len(band) != width*height {
		return nil, errors.Errorf("band has %d pixels, expected %dx%d", len(band), width, height)
	}

	switch method {
	case Gaussian, "":
		sigma := float64(blockSize-1) / 6
		return separable(band, width, height, GaussianKernel(sigma)), nil
	case Mean:
		return separable(band, width, height, boxKernel(blockSize)), nil
	case Median:
		return medianFilter(band, width, height, blockSize/2), nil
	default:
		return nil, errors.Errorf("unknown threshold method %q", method)
	}
}

// GaussianKernel returns the normalised 1-D kernel truncated at four sigma.
func GaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func boxKernel(size int) []float64 {
	kernel := make([]float64, size)
	for i := range kernel {
		kernel[i] = 1 / float64(size)
	}
	return kernel
}

// reflectIndex maps i onto [0, n) by mirroring about the edges, the edge
// pixel itself being repeated.
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// separable filters the band along rows then columns with a symmetric kernel.
func separable(band []uint8, width, height int, kernel []float64) []float64 {
	out := make([]float64, len(band))
	if width == 0 || height == 0 {
		return out
	}

	rows := newLineFilter(width, kernel)
	src := make([]float64, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src[x] = float64(band[y*width+x])
		}
		rows(out[y*width:(y+1)*width], src)
	}

	cols := newLineFilter(height, kernel)
	col := make([]float64, height)
	res := make([]float64, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = out[y*width+x]
		}
		cols(res, col)
		for y := 0; y < height; y++ {
			out[y*width+x] = res[y]
		}
	}
	return out
}

type lineFilter func(dst, src []float64)

func newLineFilter(n int, kernel []float64) lineFilter {
	if len(kernel)/2 <= directRadius {
		return directFilter(n, kernel)
	}
	return fftFilter(n, kernel)
}

func directFilter(n int, kernel []float64) lineFilter {
	r := len(kernel) / 2
	return func(dst, src []float64) {
		for i := 0; i < n; i++ {
			var sum float64
			for k, w := range kernel {
				sum += w * src[reflectIndex(i+k-r, n)]
			}
			dst[i] = sum
		}
	}
}

// fftFilter convolves a reflect-padded line with the kernel in the
// frequency domain. The transform is sized so the linear convolution does
// not wrap.
func fftFilter(n int, kernel []float64) lineFilter {
	r := len(kernel) / 2
	size := n + 4*r
	fft := fourier.NewFFT(size)

	padded := make([]float64, size)
	copy(padded, kernel)
	kernelCoeffs := fft.Coefficients(nil, padded)

	coeffs := make([]complex128, len(kernelCoeffs))
	seq := make([]float64, size)
	scale := 1 / float64(size)

	return func(dst, src []float64) {
		for j := range padded {
			padded[j] = 0
		}
		for j := 0; j < n+2*r; j++ {
			padded[j] = src[reflectIndex(j-r, n)]
		}
		fft.Coefficients(coeffs, padded)
		for k := range coeffs {
			coeffs[k] *= kernelCoeffs[k]
		}
		fft.Sequence(seq, coeffs)
		for i := 0; i < n; i++ {
			dst[i] = seq[i+2*r] * scale
		}
	}
}

// medianFilter takes the median of the (2r+1)^2 window around each pixel,
// sliding a 256-bin histogram along each row.
func medianFilter(band []uint8, width, height, r int) []float64 {
	out := make([]float64, len(band))
	if width == 0 || height == 0 {
		return out
	}
	side := 2*r + 1
	rank := side * side / 2

	var hist [256]int
	for y := 0; y < height; y++ {
		hist = [256]int{}
		for dx := -r; dx <= r; dx++ {
			addColumn(&hist, band, width, height, reflectIndex(dx, width), y, r, 1)
		}
		for x := 0; x < width; x++ {
			if x > 0 {
				addColumn(&hist, band, width, height, reflectIndex(x-r-1, width), y, r, -1)
				addColumn(&hist, band, width, height, reflectIndex(x+r, width), y, r, 1)
			}
			out[y*width+x] = float64(histRank(&hist, rank))
		}
	}
	return out
}

func addColumn(hist *[256]int, band []uint8, width, height, x, y, r, delta int) {
	for dy := -r; dy <= r; dy++ {
		hist[band[reflectIndex(y+dy, height)*width+x]] += delta
	}
}

func histRank(hist *[256]int, rank int) int {
	seen := 0
	for v, n := range hist {
		seen += n
		if seen > rank {
			return v
		}
	}
	return 255
}
