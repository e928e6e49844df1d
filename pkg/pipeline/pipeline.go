// Package pipeline turns encoded images into encoded pixel-art images.
//
// It is the single entry point shared by the CLI and the HTTP server:
//
//  1. Decode: sniff or take the container format and decode every frame
//  2. Fit: optionally shrink over-sized inputs (Options.MaxDimension)
//  3. Process: box-blur and block-quantize each frame in parallel
//  4. Encode: write the frames back in the input's output format
//
// A [Runner] adds caching around the whole sequence, keyed by the SHA-256 of
// the input bytes and every option that changes the output.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Convert(ctx, data, media.Format{}, pipeline.Options{ScaleFactor: 0.05})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("out"+res.Format.Ext(), res.Data, 0644)
//
// Whole directories are handled by [Runner.ConvertDir], which isolates
// failures per file and returns a [BatchReport].
package pipeline

import (
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixelart/pkg/cache"
	"github.com/matzehuels/pixelart/pkg/core/pixelart"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/media"
)

// Defaults shared by the CLI, the server and the config file.
const (
	// DefaultKernelSize is the side of the square box-blur window.
	DefaultKernelSize = 9

	// DefaultScaleFactor derives the block size as a fraction of the
	// shorter image side.
	DefaultScaleFactor = 0.05

	// DefaultJPEGQuality is used for JPEG output.
	DefaultJPEGQuality = media.DefaultJPEGQuality
)

// Options configures a conversion.
type Options struct {
	KernelSize   int     `json:"kernel,omitempty"`        // odd, >= 1
	ScaleFactor  float64 `json:"scale,omitempty"`         // (0,1], ignored when BlockSize is set
	BlockSize    int     `json:"block_size,omitempty"`    // explicit block side in pixels
	MaxDimension int     `json:"max_dimension,omitempty"` // 0 disables downscaling
	JPEGQuality  int     `json:"jpeg_quality,omitempty"`  // 1-100
	Workers      int     `json:"workers,omitempty"`       // concurrent frames, defaults to GOMAXPROCS
	Refresh      bool    `json:"refresh,omitempty"`       // bypass cache reads

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults fills zero values with defaults and rejects
// invalid settings. It is idempotent. A zero field means "not set"; callers
// taking user input check explicit values with the perrors validators first.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.KernelSize == 0 {
		o.KernelSize = DefaultKernelSize
	}
	if o.ScaleFactor == 0 {
		o.ScaleFactor = DefaultScaleFactor
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if err := perrors.ValidateKernelSize(o.KernelSize); err != nil {
		return err
	}
	if err := perrors.ValidateScaleFactor(o.ScaleFactor); err != nil {
		return err
	}
	if o.BlockSize < 0 {
		return perrors.New(perrors.ErrCodeInvalidBlockSize, "block size must be positive, got %d", o.BlockSize)
	}
	if o.MaxDimension < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "max dimension must not be negative, got %d", o.MaxDimension)
	}
	if err := perrors.ValidateQuality(o.JPEGQuality); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Kernel returns the square blur kernel.
func (o *Options) Kernel() pixelart.Kernel {
	return pixelart.SquareKernel(o.KernelSize)
}

// BlockSizeFor returns the block size for a w x h frame: the explicit
// BlockSize when set, otherwise derived from ScaleFactor.
func (o *Options) BlockSizeFor(w, h int) (int, error) {
	if o.BlockSize > 0 {
		return o.BlockSize, nil
	}
	return pixelart.BlockSize(w, h, o.ScaleFactor)
}

// ArtifactKeyOpts returns the cache key options for output format f.
func (o *Options) ArtifactKeyOpts(f media.Format) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Kernel:       o.KernelSize,
		BlockSize:    o.BlockSize,
		MaxDimension: o.MaxDimension,
		Format:       f.Name,
	}
	if o.BlockSize == 0 {
		k.Scale = strconv.FormatFloat(o.ScaleFactor, 'g', -1, 64)
	}
	if f.Name == media.JPEG.Name {
		k.JPEGQuality = o.JPEGQuality
	}
	return k
}

func (o *Options) encodeOptions() media.EncodeOptions {
	return media.EncodeOptions{JPEGQuality: o.JPEGQuality}
}

// Result is the outcome of one conversion.
type Result struct {
	Data      []byte       `json:"-"`
	Format    media.Format `json:"-"` // format of Data
	Frames    int          `json:"frames"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	BlockSize int          `json:"block_size"`
	Stats     Stats        `json:"-"`
	CacheHit  bool         `json:"-"`
}

// Stats holds per-stage timings. They are zero on a cache hit.
type Stats struct {
	DecodeTime  time.Duration
	ProcessTime time.Duration
	EncodeTime  time.Duration
}

// Total returns the summed stage durations.
func (s Stats) Total() time.Duration {
	return s.DecodeTime + s.ProcessTime + s.EncodeTime
}
