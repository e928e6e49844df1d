package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/pixelart/pkg/cache"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/media"
	"github.com/matzehuels/pixelart/pkg/observability"
	"github.com/matzehuels/pixelart/pkg/palette"
)

// Runner executes conversions with caching. It holds no per-conversion
// state, so one Runner can serve concurrent callers.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL applies to cached artifacts; zero selects cache.TTLArtifact.
	TTL time.Duration
}

// NewRunner returns a runner. A nil cache disables caching and a nil keyer
// selects cache.DefaultKeyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// cachedArtifact is the cache representation of a Result.
type cachedArtifact struct {
	Frames    int    `json:"frames"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	BlockSize int    `json:"block_size"`
	Data      []byte `json:"data"`
}

// Convert pixelates an encoded image. When format has no name it is
// detected from the content. The output is encoded in format.Output().
func (r *Runner) Convert(ctx context.Context, data []byte, format media.Format, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if format.Name == "" {
		f, err := media.DetectFormat(data)
		if err != nil {
			return nil, err
		}
		format = f
	}
	outFormat := format.Output()
	key := r.Keyer.ArtifactKey(cache.Hash(data), opts.ArtifactKeyOpts(outFormat))

	if !opts.Refresh {
		if res, ok := r.lookup(ctx, key, outFormat); ok {
			opts.Logger.Debug("artifact cache hit", "format", outFormat.Name, "bytes", len(res.Data))
			return res, nil
		}
	}

	res, err := r.convert(ctx, data, format, opts)
	if err != nil {
		return nil, err
	}

	entry, err := json.Marshal(cachedArtifact{
		Frames: res.Frames, Width: res.Width, Height: res.Height,
		BlockSize: res.BlockSize, Data: res.Data,
	})
	if err == nil {
		if err := r.Cache.Set(ctx, key, entry, r.artifactTTL()); err != nil {
			opts.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "artifact", len(entry))
		}
	}
	return res, nil
}

func (r *Runner) lookup(ctx context.Context, key string, f media.Format) (*Result, bool) {
	raw, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "artifact")
		return nil, false
	}
	var a cachedArtifact
	if err := json.Unmarshal(raw, &a); err != nil || len(a.Data) == 0 {
		observability.Cache().OnCacheMiss(ctx, "artifact")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "artifact")
	return &Result{
		Data:      a.Data,
		Format:    f,
		Frames:    a.Frames,
		Width:     a.Width,
		Height:    a.Height,
		BlockSize: a.BlockSize,
		CacheHit:  true,
	}, true
}

func (r *Runner) convert(ctx context.Context, data []byte, format media.Format, opts Options) (res *Result, err error) {
	res = &Result{Format: format.Output()}

	start := time.Now()
	img, err := media.DecodeBytes(data, format)
	if err != nil {
		return nil, err
	}
	img, err = media.Fit(img, opts.MaxDimension)
	if err != nil {
		return nil, err
	}
	res.Stats.DecodeTime = time.Since(start)

	frames := img.Frames()
	res.Frames = len(frames)
	res.Width, res.Height = frames[0].W, frames[0].H
	opts.Logger.Debug("decoded image",
		"format", format.Name,
		"frames", res.Frames,
		"size", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"duration", res.Stats.DecodeTime)

	observability.Pipeline().OnConvertStart(ctx, format.Name, res.Frames)
	defer func() {
		observability.Pipeline().OnConvertComplete(ctx, format.Name, res.Frames, res.Stats.Total(), err)
	}()

	if res.BlockSize, err = opts.BlockSizeFor(res.Width, res.Height); err != nil {
		return res, err
	}

	start = time.Now()
	processed, err := ProcessFrames(ctx, frames, opts)
	if err != nil {
		return res, err
	}
	out, err := img.WithFrames(processed)
	if err != nil {
		return res, err
	}
	res.Stats.ProcessTime = time.Since(start)

	start = time.Now()
	if res.Data, err = media.EncodeBytes(out, opts.encodeOptions()); err != nil {
		return res, err
	}
	res.Stats.EncodeTime = time.Since(start)

	opts.Logger.Debug("pixelated image",
		"block_size", res.BlockSize,
		"kernel", opts.KernelSize,
		"process", res.Stats.ProcessTime,
		"encode", res.Stats.EncodeTime)
	return res, nil
}

// ConvertFile converts the image at in and writes it to out. out must use an
// extension of the output format; an empty out selects
// OutputPath(in, "", format).
func (r *Runner) ConvertFile(ctx context.Context, in, out string, opts Options) (*Result, string, error) {
	format, err := media.FormatForPath(in)
	if err != nil {
		return nil, "", err
	}
	if out == "" {
		out = OutputPath(in, "", format)
	} else if ext := strings.ToLower(filepath.Ext(out)); !slices.Contains(format.Output().Extensions, ext) {
		return nil, "", perrors.New(perrors.ErrCodeInvalidPath,
			"output %s must use the %s extension", filepath.Base(out), format.Output().Ext())
	}

	data, err := os.ReadFile(in)
	if os.IsNotExist(err) {
		return nil, "", perrors.Wrap(perrors.ErrCodeFileNotFound, err, "unable to locate image %s", in)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", in, err)
	}

	res, err := r.Convert(ctx, data, format, opts)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, "", fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(out, res.Data, 0644); err != nil {
		return nil, "", fmt.Errorf("write %s: %w", out, err)
	}
	return res, out, nil
}

// cachedSwatch is the cache representation of a palette.Swatch.
type cachedSwatch struct {
	Hex    string  `json:"hex"`
	Weight float64 `json:"weight"`
}

// Palette extracts up to n dominant colors from the first frame of an
// encoded image. The second return value reports a cache hit.
func (r *Runner) Palette(ctx context.Context, data []byte, format media.Format, n int, method palette.Method) ([]palette.Swatch, bool, error) {
	if n <= 0 {
		return nil, false, perrors.New(perrors.ErrCodeInvalidInput, "color count must be positive, got %d", n)
	}
	key := r.Keyer.PaletteKey(cache.Hash(data), cache.PaletteKeyOpts{Colors: n, Method: method.String()})

	if raw, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var cached []cachedSwatch
		if json.Unmarshal(raw, &cached) == nil {
			if out, ok := fromCachedSwatches(cached); ok {
				observability.Cache().OnCacheHit(ctx, "palette")
				return out, true, nil
			}
		}
	}
	observability.Cache().OnCacheMiss(ctx, "palette")

	if format.Name == "" {
		f, err := media.DetectFormat(data)
		if err != nil {
			return nil, false, err
		}
		format = f
	}
	img, err := media.DecodeBytes(data, format)
	if err != nil {
		return nil, false, err
	}
	swatches := palette.Extract(img.Frames()[0].ToImage(), n, method)

	cached := make([]cachedSwatch, len(swatches))
	for i, s := range swatches {
		cached[i] = cachedSwatch{Hex: s.Hex(), Weight: s.Weight}
	}
	if raw, err := json.Marshal(cached); err == nil {
		if r.Cache.Set(ctx, key, raw, cache.TTLPalette) == nil {
			observability.Cache().OnCacheSet(ctx, "palette", len(raw))
		}
	}
	return swatches, false, nil
}

func fromCachedSwatches(cached []cachedSwatch) ([]palette.Swatch, bool) {
	out := make([]palette.Swatch, 0, len(cached))
	for _, c := range cached {
		col, err := colorful.Hex(c.Hex)
		if err != nil {
			return nil, false
		}
		out = append(out, palette.Swatch{Color: col, Weight: c.Weight})
	}
	return out, true
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) artifactTTL() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.TTLArtifact
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
