package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/httputil"
	"github.com/matzehuels/pixelart/pkg/media"
	"github.com/matzehuels/pixelart/pkg/palette"
)

// paletteCommand creates the palette command.
func (c *CLI) paletteCommand() *cobra.Command {
	var (
		colors  int
		method  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "palette <file|url>",
		Short: "Print the dominant colors of an image",
		Long: `Palette extracts the most prominent colors of an image, ordered by how much
of the picture they cover. Running it on a converted image shows the colors
the blocks were painted with.`,
		Example: `  pixelart palette photo.jpg
  pixelart palette output/pixelated_photo.jpg -n 5 --method kmeans`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if colors <= 0 {
				return perrors.New(perrors.ErrCodeInvalidInput, "--colors must be positive, got %d", colors)
			}
			m, err := palette.ParseMethod(method)
			if err != nil {
				return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid --method")
			}

			ctx := cmd.Context()
			path := args[0]
			data, format, err := c.readInput(ctx, path)
			if err != nil {
				return err
			}

			runner := c.newRunner(ctx, noCache, "")
			defer runner.Close()

			swatches, cached, err := runner.Palette(ctx, data, format, colors, m)
			if err != nil {
				return err
			}

			printSuccess("%s palette of %s", StyleHighlight.Render(m.String()), path)
			for _, s := range swatches {
				printSwatch(s)
			}
			if len(swatches) < colors {
				printWarning("found %d distinct colors, %d requested", len(swatches), colors)
			}
			if cached {
				printDetail(iconCached)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&colors, "colors", "n", 8, "number of colors to report")
	cmd.Flags().StringVar(&method, "method", palette.MethodDominantColor.String(), "extraction method: dominantcolor or kmeans")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// readInput loads a local file or downloads a URL. A zero Format means the
// content is sniffed by the pipeline.
func (c *CLI) readInput(ctx context.Context, path string) ([]byte, media.Format, error) {
	if httputil.IsURL(path) {
		data, name, err := httputil.NewFetcher(c.config().MaxUploadBytes()).Fetch(ctx, path)
		if err != nil {
			return nil, media.Format{}, err
		}
		format, _ := media.FormatForPath(name)
		return data, format, nil
	}

	format, err := media.FormatForPath(path)
	if err != nil {
		return nil, media.Format{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, media.Format{}, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "unable to locate image %s", path)
	}
	if err != nil {
		return nil, media.Format{}, err
	}
	return data, format, nil
}
