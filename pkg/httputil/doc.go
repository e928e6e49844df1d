// Package httputil downloads remote images for the pipeline.
//
// # Fetching
//
// [Fetcher] performs a GET with a context, a body size limit and retries:
//
//	f := httputil.NewFetcher(32 << 20)
//	data, name, err := f.Fetch(ctx, "https://example.com/cat.gif")
//
// The returned name is the last path segment of the URL and is used to pick
// the image format and the output file name. Content without a usable
// extension is sniffed by the pipeline.
//
// # Retry
//
// Network errors, 429 and 5xx responses are wrapped in [RetryableError] and
// retried by [Retry] with exponential backoff. Other statuses fail at once;
// 404 maps to the NOT_FOUND error code.
package httputil
