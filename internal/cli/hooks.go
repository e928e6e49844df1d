package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixelart/pkg/observability"
)

// logHooks reports pipeline and cache events at debug level.
type logHooks struct {
	logger *log.Logger
}

// installLogHooks registers logHooks for the pipeline and cache events.
// HTTP events are already logged by the server middleware.
func installLogHooks(l *log.Logger) {
	h := &logHooks{logger: l.WithPrefix("hooks")}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
}

func (h *logHooks) OnConvertStart(_ context.Context, format string, frames int) {
	h.logger.Debug("convert start", "format", format, "frames", frames)
}

func (h *logHooks) OnConvertComplete(_ context.Context, format string, frames int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("convert failed", "format", format, "frames", frames, "err", err)
		return
	}
	h.logger.Debug("convert done", "format", format, "frames", frames, "took", d.Round(time.Millisecond))
}

func (h *logHooks) OnFrameComplete(_ context.Context, index, blockSize int, d time.Duration, err error) {
	h.logger.Debug("frame", "index", index, "block", blockSize, "took", d.Round(time.Microsecond), "err", err)
}

func (h *logHooks) OnBatchItem(_ context.Context, path string, d time.Duration, err error) {
	h.logger.Debug("batch item", "path", path, "took", d.Round(time.Millisecond), "err", err)
}

func (h *logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}
