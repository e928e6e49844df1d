package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/webp"

	"github.com/matzehuels/pixelart/pkg/core/pixelart"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

// DefaultJPEGQuality is used when EncodeOptions.JPEGQuality is zero.
const DefaultJPEGQuality = 95

// EncodeOptions tunes container encoding.
type EncodeOptions struct {
	JPEGQuality int // 1-100, 0 selects DefaultJPEGQuality
}

func (o EncodeOptions) jpegQuality() int {
	if o.JPEGQuality <= 0 {
		return DefaultJPEGQuality
	}
	return min(o.JPEGQuality, 100)
}

// Image is a decoded picture of one or more frames.
type Image interface {
	// Format is the container the image was decoded from.
	Format() Format

	// Frames returns the pixel data in display order. It has at least one element.
	Frames() pixelart.Sequence

	// WithFrames returns a copy of the image carrying seq instead of the
	// current frames. seq must have the same length, and all of its frames
	// must share one size.
	WithFrames(seq pixelart.Sequence) (Image, error)

	// Encode writes the image in Format().Output().
	Encode(w io.Writer, opts EncodeOptions) error
}

// Still is a single-frame image.
type Still struct {
	format Format
	frame  pixelart.Buffer
}

// NewStill wraps a buffer as a still image of the given format.
func NewStill(f Format, buf pixelart.Buffer) *Still {
	return &Still{format: f, frame: buf}
}

func (s *Still) Format() Format            { return s.format }
func (s *Still) Frames() pixelart.Sequence { return pixelart.Sequence{s.frame} }

func (s *Still) WithFrames(seq pixelart.Sequence) (Image, error) {
	if err := checkFrames(seq, 1); err != nil {
		return nil, err
	}
	return &Still{format: s.format, frame: seq[0]}, nil
}

func (s *Still) Encode(w io.Writer, opts EncodeOptions) error {
	out := s.format.Output()
	if out.Animated {
		return encodeGIF(w, pixelart.Sequence{s.frame}, []int{0}, -1)
	}
	err := imaging.Encode(w, s.frame.ToImage(), out.imagingFormat(), imaging.JPEGQuality(opts.jpegQuality()))
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeEncode, err, "encode %s", out.Name)
	}
	return nil
}

// Animated is a multi-frame image with per-frame delays.
type Animated struct {
	format    Format
	frames    pixelart.Sequence
	delays    []int // hundredths of a second, one per frame
	loopCount int   // gif.GIF semantics: 0 loops forever, -1 plays once
}

// NewAnimated builds an animated image. delays may be nil.
func NewAnimated(f Format, frames pixelart.Sequence, delays []int, loopCount int) (*Animated, error) {
	if err := checkFrames(frames, len(frames)); err != nil {
		return nil, err
	}
	d := make([]int, len(frames))
	copy(d, delays)
	return &Animated{format: f, frames: frames, delays: d, loopCount: loopCount}, nil
}

func (a *Animated) Format() Format            { return a.format }
func (a *Animated) Frames() pixelart.Sequence { return a.frames }

// Delays returns the per-frame delays in hundredths of a second.
func (a *Animated) Delays() []int { return a.delays }

// LoopCount returns the loop count in image/gif semantics.
func (a *Animated) LoopCount() int { return a.loopCount }

func (a *Animated) WithFrames(seq pixelart.Sequence) (Image, error) {
	if err := checkFrames(seq, len(a.frames)); err != nil {
		return nil, err
	}
	return &Animated{format: a.format, frames: seq, delays: a.delays, loopCount: a.loopCount}, nil
}

func (a *Animated) Encode(w io.Writer, opts EncodeOptions) error {
	if !a.format.Output().Animated {
		// Containers without animation keep the first frame.
		return NewStill(a.format, a.frames[0]).Encode(w, opts)
	}
	return encodeGIF(w, a.frames, a.delays, a.loopCount)
}

func checkFrames(seq pixelart.Sequence, want int) error {
	if len(seq) == 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "frame sequence is empty")
	}
	if len(seq) != want {
		return perrors.New(perrors.ErrCodeInvalidInput, "got %d frames, want %d", len(seq), want)
	}
	for i, f := range seq {
		if f.Empty() {
			return perrors.New(perrors.ErrCodeEmptyBuffer, "frame %d is empty", i)
		}
		if f.W != seq[0].W || f.H != seq[0].H {
			return perrors.New(perrors.ErrCodeInvalidInput,
				"frame %d is %dx%d, want %dx%d", i, f.W, f.H, seq[0].W, seq[0].H)
		}
	}
	return nil
}

// Decode reads an image of format f from r.
func Decode(r io.Reader, f Format) (Image, error) {
	switch f.Name {
	case GIF.Name:
		return decodeGIF(r)
	case WebP.Name:
		img, err := webp.Decode(r)
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeDecode, err, "decode webp")
		}
		return NewStill(f, pixelart.FromImage(img)), nil
	case "":
		return nil, perrors.New(perrors.ErrCodeUnsupportedFormat, "no format given")
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeDecode, err, "decode %s", f.Name)
	}
	buf := pixelart.FromImage(img)
	if buf.Empty() {
		return nil, perrors.New(perrors.ErrCodeEmptyBuffer, "%s image has no pixels", f.Name)
	}
	return NewStill(f, buf), nil
}

// DecodeBytes decodes data as format f.
func DecodeBytes(data []byte, f Format) (Image, error) {
	return Decode(bytes.NewReader(data), f)
}

// EncodeBytes encodes img into memory.
func EncodeBytes(img Image, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := img.Encode(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFile decodes the image at path, choosing the format from its extension.
func ReadFile(path string) (Image, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "unable to locate image %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return Decode(file, f)
}

// WriteFile encodes img to path, replacing any existing file.
func WriteFile(path string, img Image, opts EncodeOptions) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := img.Encode(file, opts); err != nil {
		file.Close()
		_ = os.Remove(path)
		return err
	}
	return file.Close()
}

// Fit shrinks every frame of img so that neither side exceeds maxDim,
// preserving the aspect ratio. Images already within bounds, and maxDim <= 0,
// return img unchanged.
func Fit(img Image, maxDim int) (Image, error) {
	frames := img.Frames()
	if maxDim <= 0 || (frames[0].W <= maxDim && frames[0].H <= maxDim) {
		return img, nil
	}
	out := make(pixelart.Sequence, len(frames))
	for i, f := range frames {
		small := resize.Thumbnail(uint(maxDim), uint(maxDim), f.ToImage(), resize.Lanczos3)
		out[i] = pixelart.FromImage(small)
	}
	return img.WithFrames(out)
}
