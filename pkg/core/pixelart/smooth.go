package pixelart

import (
	"math/bits"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

// Kernel is the support size of the box blur. Both sides must be odd and >= 1.
type Kernel struct {
	W, H int
}

// SquareKernel returns an n×n kernel.
func SquareKernel(n int) Kernel {
	return Kernel{W: n, H: n}
}

// Validate reports INVALID_KERNEL for non-positive or even sides.
func (k Kernel) Validate() error {
	if k.W < 1 || k.H < 1 {
		return perrors.New(perrors.ErrCodeInvalidKernel, "kernel dimensions must be positive, got %dx%d", k.W, k.H)
	}
	if uint64(k.W) > perrors.MaxKernelSize || uint64(k.H) > perrors.MaxKernelSize {
		return perrors.New(perrors.ErrCodeInvalidKernel, "kernel dimensions must not exceed %d, got %dx%d",
			uint64(perrors.MaxKernelSize), k.W, k.H)
	}
	if k.W%2 == 0 || k.H%2 == 0 {
		return perrors.New(perrors.ErrCodeInvalidKernel, "kernel dimensions must be odd, got %dx%d", k.W, k.H)
	}
	return nil
}

// Identity reports whether the kernel leaves a buffer unchanged.
func (k Kernel) Identity() bool {
	return k.W == 1 && k.H == 1
}

// span splits the window [c-r, c+r] over a line of n samples into the
// number of clamped repeats of the first sample, the in-range half-open
// interval [lo, hi) and the number of clamped repeats of the last sample.
// c must lie in [0, n).
func span(c, r, n int) (left, lo, hi, right int) {
	a, b := c-r, c+r
	lo, hi = max(a, 0), min(b, n-1)+1
	if a < 0 {
		left = -a
	}
	if b > n-1 {
		right = b - (n - 1)
	}
	return left, lo, hi, right
}

// uint128 accumulates vertical window sums, which exceed 64 bits for
// kernels near the maximum side.
type uint128 struct{ hi, lo uint64 }

func (u uint128) addMul(a, b uint64) uint128 {
	h, l := bits.Mul64(a, b)
	var c uint64
	u.lo, c = bits.Add64(u.lo, l, 0)
	u.hi, _ = bits.Add64(u.hi, h, c)
	return u
}

func (u uint128) sub(v uint128) uint128 {
	var b uint64
	u.lo, b = bits.Sub64(u.lo, v.lo, 0)
	u.hi, _ = bits.Sub64(u.hi, v.hi, b)
	return u
}

// roundDiv returns (u + n/2) / n. The quotient must fit in 64 bits.
func (u uint128) roundDiv(n uint64) uint64 {
	u = u.addMul(n/2, 1)
	q, _ := bits.Div64(u.hi, u.lo, n)
	return q
}

// Smooth applies a k.W×k.H mean filter to buf and returns a new buffer.
//
// Each output channel is the mean of the window centered on the pixel,
// rounded to nearest with halves rounding up. Coordinates outside the buffer
// are clamped to the nearest edge pixel. Window sums come from prefix sums,
// so the cost does not depend on the kernel size.
func Smooth(buf Buffer, k Kernel) (Buffer, error) {
	if err := k.Validate(); err != nil {
		return Buffer{}, err
	}
	if buf.Empty() {
		return Buffer{}, perrors.New(perrors.ErrCodeEmptyBuffer, "cannot smooth a %dx%d buffer", buf.W, buf.H)
	}
	if k.Identity() {
		return buf.Clone(), nil
	}

	w, h := buf.W, buf.H
	rx, ry := k.W/2, k.H/2

	// Horizontal window sums. The window is separable, so the full sum is the
	// vertical sum of these; dividing once at the end keeps rounding exact.
	// Each fits in 64 bits: at most 255 * k.W.
	rows := make([]uint64, w*h*3)
	pre := make([]uint64, (w+1)*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := pixOffset(w, x, y)
			for c := 0; c < 3; c++ {
				pre[(x+1)*3+c] = pre[x*3+c] + uint64(buf.Pix[i+c])
			}
		}
		first, last := pixOffset(w, 0, y), pixOffset(w, w-1, y)
		for x := 0; x < w; x++ {
			left, lo, hi, right := span(x, rx, w)
			o := pixOffset(w, x, y)
			for c := 0; c < 3; c++ {
				rows[o+c] = uint64(left)*uint64(buf.Pix[first+c]) +
					uint64(right)*uint64(buf.Pix[last+c]) +
					pre[hi*3+c] - pre[lo*3+c]
			}
		}
	}

	n := uint64(k.W) * uint64(k.H)
	out := NewBuffer(w, h)
	col := make([]uint128, (h+1)*3)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			i := pixOffset(w, x, y)
			for c := 0; c < 3; c++ {
				col[(y+1)*3+c] = col[y*3+c].addMul(rows[i+c], 1)
			}
		}
		first, last := pixOffset(w, x, 0), pixOffset(w, x, h-1)
		for y := 0; y < h; y++ {
			left, lo, hi, right := span(y, ry, h)
			o := pixOffset(w, x, y)
			for c := 0; c < 3; c++ {
				sum := col[hi*3+c].sub(col[lo*3+c]).
					addMul(uint64(left), rows[first+c]).
					addMul(uint64(right), rows[last+c])
				out.Pix[o+c] = uint8(sum.roundDiv(n))
			}
		}
	}
	return out, nil
}
