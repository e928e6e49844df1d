package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/media"
	"github.com/matzehuels/pixelart/pkg/observability"
)

// OutputPrefix is prepended to the names of converted files.
const OutputPrefix = "pixelated_"

// DefaultOutputDir is the directory, relative to the input, that receives
// converted files when none is given.
const DefaultOutputDir = "output"

// OutputPath returns where the conversion of input is written:
// <outDir>/pixelated_<stem><ext>. An empty outDir selects
// <dir of input>/output. The input's extension is kept when the format
// encodes to itself; otherwise the output format's preferred one is used.
func OutputPath(input, outDir string, f media.Format) string {
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(input), DefaultOutputDir)
	}
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	out := f.Output()
	if !slices.Contains(out.Extensions, strings.ToLower(ext)) {
		ext = out.Ext()
	}
	return filepath.Join(outDir, OutputPrefix+stem+ext)
}

// ItemStatus is the outcome of one file in a batch.
type ItemStatus string

const (
	StatusConverted ItemStatus = "converted"
	StatusSkipped   ItemStatus = "skipped" // not a supported image
	StatusFailed    ItemStatus = "failed"
)

// BatchItem records one file of a directory conversion.
type BatchItem struct {
	Input    string
	Output   string
	Status   ItemStatus
	Err      error
	Duration time.Duration
	CacheHit bool
}

// BatchReport summarizes a directory conversion.
type BatchReport struct {
	RunID    string
	Dir      string
	OutDir   string
	Items    []BatchItem
	Duration time.Duration
}

func (r *BatchReport) count(s ItemStatus) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Converted returns the number of files written.
func (r *BatchReport) Converted() int { return r.count(StatusConverted) }

// Skipped returns the number of files that were not images.
func (r *BatchReport) Skipped() int { return r.count(StatusSkipped) }

// Failed returns the number of files that could not be converted.
func (r *BatchReport) Failed() int { return r.count(StatusFailed) }

// ConvertDir converts every regular file directly inside dir, in name
// order, writing results to outDir (default <dir>/output). Subdirectories
// are not visited. A file that fails is recorded in the report and does not
// stop the batch; only cancellation of ctx does.
func (r *Runner) ConvertDir(ctx context.Context, dir, outDir string, opts Options) (*BatchReport, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "unable to locate directory %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	if outDir == "" {
		outDir = filepath.Join(dir, DefaultOutputDir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	report := &BatchReport{RunID: uuid.NewString(), Dir: dir, OutDir: outDir}
	logger := opts.Logger.With("run", report.RunID[:8])
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		in := filepath.Join(dir, e.Name())
		item := r.convertItem(ctx, in, outDir, opts)
		report.Items = append(report.Items, item)
		observability.Pipeline().OnBatchItem(ctx, in, item.Duration, item.Err)

		switch item.Status {
		case StatusFailed:
			logger.Error("conversion failed", "file", e.Name(), "err", item.Err)
		case StatusSkipped:
			logger.Debug("skipped", "file", e.Name(), "reason", perrors.UserMessage(item.Err))
		default:
			logger.Info("converted", "file", e.Name(), "output", item.Output, "cached", item.CacheHit)
		}
	}
	return report, nil
}

func (r *Runner) convertItem(ctx context.Context, in, outDir string, opts Options) (item BatchItem) {
	item.Input = in
	start := time.Now()
	defer func() { item.Duration = time.Since(start) }()

	format, err := media.FormatForPath(in)
	if err != nil {
		item.Status, item.Err = StatusSkipped, err
		return item
	}
	res, out, err := r.ConvertFile(ctx, in, OutputPath(in, outDir, format), opts)
	if err != nil {
		item.Status, item.Err = StatusFailed, err
		return item
	}
	item.Status, item.Output, item.CacheHit = StatusConverted, out, res.CacheHit
	return item
}
