package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

// Defaults for NewFetcher.
const (
	DefaultAttempts = 3
	DefaultDelay    = 500 * time.Millisecond
	DefaultTimeout  = 30 * time.Second
)

// fallbackName is used when a URL has no usable last path segment.
const fallbackName = "download"

// Fetcher downloads images over HTTP.
type Fetcher struct {
	Client    *http.Client
	MaxBytes  int64 // 0 disables the limit
	Attempts  int
	Delay     time.Duration // initial backoff
	UserAgent string
}

// NewFetcher returns a Fetcher that rejects bodies larger than maxBytes.
func NewFetcher(maxBytes int64) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: DefaultTimeout},
		MaxBytes:  maxBytes,
		Attempts:  DefaultAttempts,
		Delay:     DefaultDelay,
		UserAgent: "pixelart",
	}
}

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads rawURL and returns its body and a file name derived from
// the URL path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !IsURL(rawURL) {
		return nil, "", perrors.New(perrors.ErrCodeInvalidInput, "not an http(s) URL: %q", rawURL)
	}

	var data []byte
	err = Retry(ctx, f.Attempts, f.Delay, func() error {
		var err error
		data, err = f.get(ctx, u.String())
		return err
	})
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", perrors.New(perrors.ErrCodeInvalidInput, "%s returned an empty body", u.Redacted())
	}
	return data, nameFromURL(u), nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: fmt.Errorf("fetch %s: %w", rawURL, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(rawURL, resp.StatusCode); err != nil {
		return nil, err
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return nil, tooLarge(rawURL, f.MaxBytes)
	}

	body := io.Reader(resp.Body)
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("read %s: %w", rawURL, err)}
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return nil, tooLarge(rawURL, f.MaxBytes)
	}
	return data, nil
}

func checkStatus(rawURL string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return perrors.New(perrors.ErrCodeNotFound, "%s: not found", rawURL)
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: fmt.Errorf("fetch %s: status %d", rawURL, code)}
	default:
		return fmt.Errorf("fetch %s: status %d", rawURL, code)
	}
}

func tooLarge(rawURL string, limit int64) error {
	return perrors.New(perrors.ErrCodeInvalidInput, "%s exceeds the %d byte limit", rawURL, limit)
}

func nameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." || strings.TrimSpace(name) == "" {
		return fallbackName
	}
	return name
}
