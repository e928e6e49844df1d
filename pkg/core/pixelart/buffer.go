package pixelart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// RGB is a single picture element with three 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// Less reports whether c sorts before o in ascending (R, G, B) order.
func (c RGB) Less(o RGB) bool {
	if c.R != o.R {
		return c.R < o.R
	}
	if c.G != o.G {
		return c.G < o.G
	}
	return c.B < o.B
}

// RGBA implements color.Color. The alpha channel is always opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// String returns the color as #rrggbb.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Buffer is a W×H grid of RGB pixels stored row-major and interleaved.
type Buffer struct {
	W, H int
	Pix  []uint8 // Interleaved RGB, len = W*H*3
}

// Sequence is an ordered list of frames. A still image is a sequence of one.
type Sequence []Buffer

// NewBuffer allocates a zeroed (black) buffer.
func NewBuffer(w, h int) Buffer {
	w, h = max(w, 0), max(h, 0)
	return Buffer{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

// Filled allocates a buffer with every pixel set to c.
func Filled(w, h int, c RGB) Buffer {
	b := NewBuffer(w, h)
	for i := 0; i < len(b.Pix); i += 3 {
		b.Pix[i], b.Pix[i+1], b.Pix[i+2] = c.R, c.G, c.B
	}
	return b
}

func pixOffset(w, x, y int) int {
	return (y*w + x) * 3
}

// Empty reports whether the buffer has no pixels.
func (b Buffer) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Bounds returns the buffer rectangle anchored at the origin.
func (b Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.W, b.H)
}

// At returns the pixel at (x, y). Coordinates must be in range.
func (b Buffer) At(x, y int) RGB {
	i := pixOffset(b.W, x, y)
	return RGB{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

// Set writes the pixel at (x, y). Coordinates must be in range.
func (b Buffer) Set(x, y int, c RGB) {
	i := pixOffset(b.W, x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = c.R, c.G, c.B
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return Buffer{W: b.W, H: b.H, Pix: pix}
}

// Equal reports whether both buffers have the same dimensions and pixels.
func (b Buffer) Equal(o Buffer) bool {
	return b.W == o.W && b.H == o.H && bytes.Equal(b.Pix, o.Pix)
}

// FromImage copies img into a new buffer anchored at (0,0).
// Alpha is discarded: each pixel keeps its non-premultiplied color.
func FromImage(img image.Image) Buffer {
	r := img.Bounds()
	b := NewBuffer(r.Dx(), r.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < b.H; y++ {
			row := src.Pix[src.PixOffset(r.Min.X, r.Min.Y+y):]
			for x := 0; x < b.W; x++ {
				i := pixOffset(b.W, x, y)
				b.Pix[i], b.Pix[i+1], b.Pix[i+2] = row[x*4], row[x*4+1], row[x*4+2]
			}
		}
		return b
	case *image.RGBA:
		for y := 0; y < b.H; y++ {
			row := src.Pix[src.PixOffset(r.Min.X, r.Min.Y+y):]
			for x := 0; x < b.W; x++ {
				c := color.NRGBAModel.Convert(color.RGBA{row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]}).(color.NRGBA)
				b.Set(x, y, RGB{c.R, c.G, c.B})
			}
		}
		return b
	}

	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			c := color.NRGBAModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.NRGBA)
			b.Set(x, y, RGB{c.R, c.G, c.B})
		}
	}
	return b
}

// ToImage returns the buffer as an opaque RGBA image.
func (b Buffer) ToImage() *image.RGBA {
	img := image.NewRGBA(b.Bounds())
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			i := pixOffset(b.W, x, y)
			j := img.PixOffset(x, y)
			img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = b.Pix[i], b.Pix[i+1], b.Pix[i+2], 0xff
		}
	}
	return img
}
