package hashing

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sort"
)

const (
	phashSampleSize = 32
	phashBlockSize  = 8
)

// PerceptualHash computes a 64-bit DCT-based perceptual hash of the image at
// path: decode, resample to 32x32 greyscale, run a 2D DCT, take the
// top-left 8x8 block excluding the DC coefficient, and set each bit to
// whether that coefficient exceeds the block's median. The result is
// returned as a 16-character hex string (64 bits). Deterministic, and
// stable under minor recompression of the same image.
func PerceptualHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("hashing: decode image %s: %w", path, err)
	}

	grey := resampleGreyscale(img, phashSampleSize)
	freq := dct2D(grey)

	block := make([]float64, 0, phashBlockSize*phashBlockSize-1)
	for y := 0; y < phashBlockSize; y++ {
		for x := 0; x < phashBlockSize; x++ {
			if x == 0 && y == 0 {
				continue // exclude the DC coefficient
			}
			block = append(block, freq[y][x])
		}
	}
	median := medianOf(block)

	var bits uint64
	bitIdx := uint(0)
	for y := 0; y < phashBlockSize; y++ {
		for x := 0; x < phashBlockSize; x++ {
			if x == 0 && y == 0 {
				continue
			}
			if freq[y][x] > median {
				bits |= 1 << bitIdx
			}
			bitIdx++
		}
	}
	return fmt.Sprintf("%016x", bits), nil
}

// resampleGreyscale nearest-neighbor resamples img to an n x n greyscale
// matrix of float64 luminance values in [0, 255].
func resampleGreyscale(img image.Image, n int) [][]float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([][]float64, n)
	for y := 0; y < n; y++ {
		out[y] = make([]float64, n)
		srcY := bounds.Min.Y + y*h/n
		for x := 0; x < n; x++ {
			srcX := bounds.Min.X + x*w/n
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			// RGBA() returns 16-bit-scaled channels; rescale to 8-bit before
			// applying the standard luminance weights.
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			out[y][x] = lum
		}
	}
	return out
}

// dct2D runs a direct (O(n^4)) 2D discrete cosine transform, adequate at the
// 32x32 sizes this hash uses.
func dct2D(m [][]float64) [][]float64 {
	n := len(m)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			var sum float64
			for x := 0; x < n; x++ {
				for y := 0; y < n; y++ {
					sum += m[x][y] *
						math.Cos(math.Pi/float64(n)*(float64(x)+0.5)*float64(u)) *
						math.Cos(math.Pi/float64(n)*(float64(y)+0.5)*float64(v))
				}
			}
			out[u][v] = sum * alpha(u, n) * alpha(v, n)
		}
	}
	return out
}

func alpha(u, n int) float64 {
	if u == 0 {
		return math.Sqrt(1.0 / float64(n))
	}
	return math.Sqrt(2.0 / float64(n))
}

func medianOf(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
