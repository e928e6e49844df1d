package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pixelart/pkg/core/pixelart"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/observability"
)

// ProcessFrames pixelates every frame of seq. Frames are independent: each
// gets its own block size from its own dimensions (unless overridden) and
// they run concurrently, bounded by opts.Workers. The output keeps the
// input order. The first failing frame cancels the rest.
func ProcessFrames(ctx context.Context, seq pixelart.Sequence, opts Options) (pixelart.Sequence, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(seq) == 0 {
		return nil, perrors.New(perrors.ErrCodeEmptyBuffer, "no frames to process")
	}

	kernel := opts.Kernel()
	out := make(pixelart.Sequence, len(seq))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, frame := range seq {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			bs, err := opts.BlockSizeFor(frame.W, frame.H)
			if err == nil {
				out[i], err = pixelart.Pixelate(frame, kernel, bs)
			}
			observability.Pipeline().OnFrameComplete(gctx, i, bs, time.Since(start), err)
			if err != nil {
				if len(seq) == 1 {
					return err
				}
				return fmt.Errorf("frame %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
