package pixelart

import (
	"image"
	"math"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

// Blocks returns the quantization grid for a w×h buffer in row-major order.
// Blocks start at (0,0) with stride size; the last block of a row or column is
// truncated to the remaining pixels. The blocks tile the buffer exactly.
func Blocks(w, h, size int) []image.Rectangle {
	if w <= 0 || h <= 0 || size <= 0 {
		return nil
	}
	cols := (w + size - 1) / size
	rows := (h + size - 1) / size
	out := make([]image.Rectangle, 0, cols*rows)
	for y := 0; y < h; y += size {
		for x := 0; x < w; x += size {
			out = append(out, image.Rect(x, y, min(x+size, w), min(y+size, h)))
		}
	}
	return out
}

// DominantColor returns the most frequent exact RGB triple inside r.
// Ties resolve to the color that sorts first by (R, G, B). r is clipped to
// the buffer; an empty intersection yields black.
func DominantColor(buf Buffer, r image.Rectangle) RGB {
	return dominantColor(buf, r.Intersect(buf.Bounds()), make(map[RGB]int))
}

func dominantColor(buf Buffer, r image.Rectangle, counts map[RGB]int) RGB {
	clear(counts)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			counts[buf.At(x, y)]++
		}
	}

	var best RGB
	bestCount := 0
	for c, n := range counts {
		if n > bestCount || (n == bestCount && c.Less(best)) {
			best, bestCount = c, n
		}
	}
	return best
}

// Quantize replaces every block of buf with its dominant color and returns a
// new buffer of the same size.
func Quantize(buf Buffer, blockSize int) (Buffer, error) {
	if blockSize <= 0 {
		return Buffer{}, perrors.New(perrors.ErrCodeInvalidBlockSize, "block size must be positive, got %d", blockSize)
	}
	if buf.Empty() {
		return Buffer{}, perrors.New(perrors.ErrCodeEmptyBuffer, "cannot quantize a %dx%d buffer", buf.W, buf.H)
	}

	out := NewBuffer(buf.W, buf.H)
	counts := make(map[RGB]int, min(blockSize*blockSize, 4096))
	for _, r := range Blocks(buf.W, buf.H, blockSize) {
		c := dominantColor(buf, r, counts)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				out.Set(x, y, c)
			}
		}
	}
	return out, nil
}

// BlockSize derives the quantization block side from the image dimensions:
// floor(min(w, h) * scale). A result of zero is rejected with
// INVALID_BLOCK_SIZE rather than passed on to [Quantize].
func BlockSize(w, h int, scale float64) (int, error) {
	if w <= 0 || h <= 0 {
		return 0, perrors.New(perrors.ErrCodeEmptyBuffer, "cannot derive a block size for a %dx%d image", w, h)
	}
	if err := perrors.ValidateScaleFactor(scale); err != nil {
		return 0, err
	}
	size := int(math.Floor(float64(min(w, h)) * scale))
	if size < 1 {
		return 0, perrors.New(perrors.ErrCodeInvalidBlockSize,
			"scale factor %g is too small for a %dx%d image (block size rounds to 0)", scale, w, h)
	}
	return size, nil
}

// Pixelate runs [Smooth] followed by [Quantize].
func Pixelate(buf Buffer, k Kernel, blockSize int) (Buffer, error) {
	if blockSize <= 0 {
		return Buffer{}, perrors.New(perrors.ErrCodeInvalidBlockSize, "block size must be positive, got %d", blockSize)
	}
	smoothed, err := Smooth(buf, k)
	if err != nil {
		return Buffer{}, err
	}
	return Quantize(smoothed, blockSize)
}
