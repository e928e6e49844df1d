package httputil

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

func testFetcher(maxBytes int64) *Fetcher {
	f := NewFetcher(maxBytes)
	f.Delay = time.Millisecond
	return f
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/cat.png", true},
		{"http://localhost:8080/a.gif", true},
		{"ftp://example.com/a.png", false},
		{"photos/cat.png", false},
		{"/abs/cat.png", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFetch(t *testing.T) {
	body := []byte("GIF89a-not-really")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "pixelart" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write(body)
	}))
	defer srv.Close()

	data, name, err := testFetcher(0).Fetch(context.Background(), srv.URL+"/images/cat.gif?size=large")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Errorf("Fetch data = %q, want %q", data, body)
	}
	if name != "cat.gif" {
		t.Errorf("Fetch name = %q, want cat.gif", name)
	}

	_, name, err = testFetcher(0).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if name != fallbackName {
		t.Errorf("Fetch name for bare host = %q, want %q", name, fallbackName)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	data, _, err := testFetcher(0).Fetch(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("Fetch data = %q", data)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server called %d times, want 3", n)
	}
}

func TestFetchErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/missing.png":
			http.NotFound(w, r)
		case "/forbidden.png":
			w.WriteHeader(http.StatusForbidden)
		case "/big.png":
			w.Write(bytes.Repeat([]byte("x"), 100))
		case "/empty.png":
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	f := testFetcher(50)

	if _, _, err := f.Fetch(ctx, srv.URL+"/missing.png"); !perrors.Is(err, perrors.ErrCodeNotFound) {
		t.Errorf("404 error = %v, want NOT_FOUND", err)
	}

	calls.Store(0)
	if _, _, err := f.Fetch(ctx, srv.URL+"/forbidden.png"); err == nil || IsRetryable(err) {
		t.Errorf("403 error = %v, want a permanent error", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("403 was requested %d times, want 1", n)
	}

	if _, _, err := f.Fetch(ctx, srv.URL+"/big.png"); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("oversized error = %v, want INVALID_INPUT", err)
	}
	if _, _, err := f.Fetch(ctx, srv.URL+"/empty.png"); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("empty body error = %v, want INVALID_INPUT", err)
	}
	if _, _, err := f.Fetch(ctx, "file:///etc/passwd"); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("file URL error = %v, want INVALID_INPUT", err)
	}
}

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("transient")}
	permanent := errors.New("permanent")

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"success", []error{nil}, 1, nil},
		{"recovers", []error{transient, nil}, 2, nil},
		{"permanent", []error{permanent}, 1, permanent},
		{"exhausted", []error{transient, transient, transient}, 3, transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), 3, time.Millisecond, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return &RetryableError{Err: errors.New("transient")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry error = %v, want context.Canceled", err)
	}
}
