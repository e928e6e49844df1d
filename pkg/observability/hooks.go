// Package observability lets callers instrument pixelart without the
// libraries depending on a metrics or tracing backend.
//
// Hook interfaces cover three event groups: conversions in the pipeline,
// cache lookups and HTTP requests handled by the server. Each has a no-op
// default. A program registers its own implementations once at startup:
//
//	observability.SetPipelineHooks(myPipelineHooks{})
//	observability.SetCacheHooks(myCacheHooks{})
//
// and libraries emit events through the registry:
//
//	observability.Pipeline().OnConvertStart(ctx, "gif", 12)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives conversion events.
type PipelineHooks interface {
	// OnConvertStart fires after decoding, before any frame is processed.
	OnConvertStart(ctx context.Context, format string, frames int)
	// OnConvertComplete fires once per conversion, including failed ones.
	OnConvertComplete(ctx context.Context, format string, frames int, duration time.Duration, err error)
	// OnFrameComplete fires for every processed frame. Frames of one image
	// may complete concurrently and out of order.
	OnFrameComplete(ctx context.Context, index, blockSize int, duration time.Duration, err error)
	// OnBatchItem fires for every file handled by a directory conversion.
	OnBatchItem(ctx context.Context, path string, duration time.Duration, err error)
}

// CacheHooks receives cache events. keyType is "artifact" or "palette".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events for requests served by the HTTP server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, status, bytes int, duration time.Duration)
}

// NoopPipelineHooks ignores every event.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnConvertStart(context.Context, string, int) {}
func (NoopPipelineHooks) OnConvertComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnFrameComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnBatchItem(context.Context, string, time.Duration, error)       {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                           {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, int, time.Duration) {}

var (
	hooksMu       sync.RWMutex
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
)

// SetPipelineHooks registers pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op defaults. Tests use it to isolate registrations.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
