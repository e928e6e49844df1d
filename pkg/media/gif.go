package media

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"

	"github.com/matzehuels/pixelart/pkg/core/pixelart"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

// decodeGIF reads every frame of a GIF and composites it onto the logical
// screen, honoring each frame's disposal method, so that the resulting
// sequence holds complete pictures.
func decodeGIF(r io.Reader) (Image, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeDecode, err, "decode gif")
	}
	if len(g.Image) == 0 {
		return nil, perrors.New(perrors.ErrCodeDecode, "gif has no frames")
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = image.Rectangle{}
		for _, f := range g.Image {
			screen = screen.Union(f.Bounds())
		}
		screen.Min = image.Point{}
	}
	if screen.Empty() {
		return nil, perrors.New(perrors.ErrCodeEmptyBuffer, "gif has an empty logical screen")
	}

	canvas := image.NewRGBA(screen)
	frames := make(pixelart.Sequence, 0, len(g.Image))
	for i, f := range g.Image {
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var saved *image.RGBA
		if disposal == gif.DisposalPrevious {
			saved = image.NewRGBA(screen)
			copy(saved.Pix, canvas.Pix)
		}

		draw.Draw(canvas, f.Bounds(), f, f.Bounds().Min, draw.Over)
		frames = append(frames, pixelart.FromImage(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, f.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}

	return NewAnimated(GIF, frames, g.Delay, g.LoopCount)
}

// encodeGIF writes full-screen frames. Frames with at most 256 distinct colors
// are stored losslessly; richer frames are mapped onto the Plan 9 palette
// without dithering so that flat blocks stay flat.
func encodeGIF(w io.Writer, frames pixelart.Sequence, delays []int, loopCount int) error {
	out := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		Disposal:  make([]byte, len(frames)),
		LoopCount: loopCount,
		Config: image.Config{
			Width:  frames[0].W,
			Height: frames[0].H,
		},
	}
	for i, f := range frames {
		out.Image[i] = toPaletted(f)
		if i < len(delays) {
			out.Delay[i] = delays[i]
		}
		out.Disposal[i] = gif.DisposalNone
	}
	if err := gif.EncodeAll(w, out); err != nil {
		return perrors.Wrap(perrors.ErrCodeEncode, err, "encode gif")
	}
	return nil
}

func toPaletted(b pixelart.Buffer) *image.Paletted {
	if pal, index, ok := exactPalette(b, 256); ok {
		dst := image.NewPaletted(b.Bounds(), pal)
		for y := 0; y < b.H; y++ {
			for x := 0; x < b.W; x++ {
				dst.SetColorIndex(x, y, index[b.At(x, y)])
			}
		}
		return dst
	}
	dst := image.NewPaletted(b.Bounds(), palette.Plan9)
	draw.Draw(dst, dst.Bounds(), b.ToImage(), image.Point{}, draw.Src)
	return dst
}

// exactPalette collects the distinct colors of b in first-seen order.
// It gives up once more than limit colors are found.
func exactPalette(b pixelart.Buffer, limit int) (color.Palette, map[pixelart.RGB]uint8, bool) {
	index := make(map[pixelart.RGB]uint8)
	pal := make(color.Palette, 0, 16)
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			c := b.At(x, y)
			if _, ok := index[c]; ok {
				continue
			}
			if len(pal) == limit {
				return nil, nil, false
			}
			index[c] = uint8(len(pal))
			pal = append(pal, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return pal, index, true
}
