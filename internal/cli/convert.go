package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pixelart/pkg/config"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/httputil"
	"github.com/matzehuels/pixelart/pkg/media"
	"github.com/matzehuels/pixelart/pkg/pipeline"
)

// convertFlags holds the command-line overrides for a conversion. Only
// flags the user actually set replace configured values.
type convertFlags struct {
	kernel    int
	scale     float64
	blockSize int
	workers   int
	maxDim    int
	quality   int
	output    string
	outDir    string
	noCache   bool
	refresh   bool
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert <file|dir|url>",
		Short: "Pixelate an image or a directory of images",
		Long: `Convert smooths the input with a box blur and repaints it in square blocks.

An http(s) URL is downloaded first. A directory is converted file by file, in name order. Files that fail are
reported and the rest of the batch continues. Subdirectories are ignored.

Results are written as pixelated_<name> into --out-dir, by default an
"output" directory next to the input.`,
		Example: `  pixelart convert photo.jpg
  pixelart convert photo.jpg -k 5 -s 0.02 -o small.jpg
  pixelart convert animation.gif --block-size 8
  pixelart convert https://example.com/cat.png --out-dir .
  pixelart convert ./pictures --out-dir ./pixelated`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, c.config())
			if err != nil {
				return err
			}
			opts.Logger = loggerFromContext(cmd.Context())
			return c.runConvert(cmd.Context(), args[0], flags, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&flags.kernel, "kernel", "k", pipeline.DefaultKernelSize, "box blur kernel size (odd)")
	f.Float64VarP(&flags.scale, "scale", "s", pipeline.DefaultScaleFactor, "block size as a fraction of the shorter side")
	f.IntVar(&flags.blockSize, "block-size", 0, "explicit block size in pixels (overrides --scale)")
	f.IntVar(&flags.workers, "workers", 0, "frames processed in parallel (default: number of CPUs)")
	f.IntVar(&flags.maxDim, "max-dimension", 0, "shrink inputs larger than this many pixels per side")
	f.IntVar(&flags.quality, "quality", pipeline.DefaultJPEGQuality, "JPEG output quality (1-100)")
	f.StringVarP(&flags.output, "output", "o", "", "output file (single file only)")
	f.StringVar(&flags.outDir, "out-dir", "", "output directory")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	f.BoolVar(&flags.refresh, "refresh", false, "ignore cached results and convert again")

	return cmd
}

// options layers the flags the user set on top of the configuration.
// Explicit values are validated here so that zero never falls back to a default.
func (f convertFlags) options(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	opts := cfg.PipelineOptions()
	changed := cmd.Flags().Changed
	if changed("kernel") {
		if err := perrors.ValidateKernelSize(f.kernel); err != nil {
			return opts, err
		}
		opts.KernelSize = f.kernel
	}
	if changed("scale") {
		if err := perrors.ValidateScaleFactor(f.scale); err != nil {
			return opts, err
		}
		opts.ScaleFactor = f.scale
		if !changed("block-size") {
			opts.BlockSize = 0
		}
	}
	if changed("block-size") {
		if f.blockSize < 1 {
			return opts, perrors.New(perrors.ErrCodeInvalidBlockSize, "block size must be positive, got %d", f.blockSize)
		}
		opts.BlockSize = f.blockSize
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("max-dimension") {
		opts.MaxDimension = f.maxDim
	}
	if changed("quality") {
		if err := perrors.ValidateQuality(f.quality); err != nil {
			return opts, err
		}
		opts.JPEGQuality = f.quality
	}
	opts.Refresh = f.refresh
	return opts, nil
}

func (c *CLI) runConvert(ctx context.Context, input string, flags convertFlags, opts pipeline.Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	outDir := flags.outDir
	if outDir == "" {
		outDir = c.config().ResolvedOutputDir()
	}

	if httputil.IsURL(input) {
		runner := c.newRunner(ctx, flags.noCache, "")
		defer runner.Close()
		return c.convertURL(ctx, runner, input, flags.output, outDir, opts)
	}

	info, err := os.Stat(input)
	if os.IsNotExist(err) {
		return perrors.Wrap(perrors.ErrCodeFileNotFound, err, "unable to locate %s", input)
	}
	if err != nil {
		return err
	}

	runner := c.newRunner(ctx, flags.noCache, "")
	defer runner.Close()

	if info.IsDir() {
		if flags.output != "" {
			return perrors.New(perrors.ErrCodeInvalidInput, "--output applies to single files; use --out-dir for directories")
		}
		return c.convertDir(ctx, runner, input, outDir, opts)
	}
	return c.convertFile(ctx, runner, input, flags.output, outDir, opts)
}

func (c *CLI) convertFile(ctx context.Context, runner *pipeline.Runner, input, output, outDir string, opts pipeline.Options) error {
	if output == "" && outDir != "" {
		format, err := media.FormatForPath(input)
		if err != nil {
			return err
		}
		output = pipeline.OutputPath(input, outDir, format)
	}

	spinner := newSpinnerWithContext(ctx, "Pixelating "+filepath.Base(input)+"...")
	spinner.Start()
	res, out, err := runner.ConvertFile(ctx, input, output, opts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Failed to convert %s", input))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Converted %s", input))

	printFile(out)
	printStats(res)
	return nil
}

// convertURL downloads input and converts it. Without --output the result
// is named after the last URL path segment.
func (c *CLI) convertURL(ctx context.Context, runner *pipeline.Runner, input, output, outDir string, opts pipeline.Options) error {
	spinner := newSpinnerWithContext(ctx, "Downloading "+input+"...")
	spinner.Start()
	data, name, err := httputil.NewFetcher(c.config().MaxUploadBytes()).Fetch(ctx, input)
	spinner.Stop()
	if err != nil {
		return err
	}

	// Names without a known extension are sniffed from the content.
	format, _ := media.FormatForPath(name)
	res, err := runner.Convert(ctx, data, format, opts)
	if err != nil {
		return err
	}

	if output == "" {
		output = pipeline.OutputPath(name, outDir, res.Format)
	} else if f, err := media.FormatForPath(output); err != nil || f.Name != res.Format.Name {
		return perrors.New(perrors.ErrCodeInvalidPath,
			"output %s must use the %s extension", filepath.Base(output), res.Format.Ext())
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(output, res.Data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Converted %s", input)
	printFile(output)
	printStats(res)
	return nil
}

func (c *CLI) convertDir(ctx context.Context, runner *pipeline.Runner, dir, outDir string, opts pipeline.Options) error {
	prog := newProgress(opts.Logger)
	report, err := runner.ConvertDir(ctx, dir, outDir, opts)
	if report != nil {
		prog.done(fmt.Sprintf("Processed %d files", len(report.Items)))
		printBatchReport(report)
	}
	if err != nil {
		return err
	}
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, len(report.Items))
	}
	return nil
}
