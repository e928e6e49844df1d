package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/matzehuels/pixelart/pkg/buildinfo"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/media"
	"github.com/matzehuels/pixelart/pkg/palette"
	"github.com/matzehuels/pixelart/pkg/pipeline"
)

// Response headers describing a conversion.
const (
	HeaderBlockSize = "X-Pixelart-Block-Size"
	HeaderFrames    = "X-Pixelart-Frames"
	HeaderCache     = "X-Pixelart-Cache"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type paletteColor struct {
	Hex    string  `json:"hex"`
	Weight float64 `json:"weight"`
}

type paletteResponse struct {
	Method string         `json:"method"`
	Colors []paletteColor `json:"colors"`
	Cached bool           `json:"cached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handlePixelate(w http.ResponseWriter, r *http.Request) {
	opts, err := s.parseOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, format, err := s.readImage(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.runner.Convert(r.Context(), data, format, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.Format.MIME)
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set(HeaderBlockSize, strconv.Itoa(res.BlockSize))
	h.Set(HeaderFrames, strconv.Itoa(res.Frames))
	h.Set(HeaderCache, cacheStatus(res.CacheHit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n := 8
	if v := q.Get("colors"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n <= 0 || n > 64 {
			s.fail(w, r, perrors.New(perrors.ErrCodeInvalidInput, "colors must be an integer within 1-64, got %q", v))
			return
		}
	}
	method, err := palette.ParseMethod(q.Get("method"))
	if err != nil {
		s.fail(w, r, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid method"))
		return
	}
	data, format, err := s.readImage(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	swatches, hit, err := s.runner.Palette(r.Context(), data, format, n, method)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := paletteResponse{Method: method.String(), Colors: make([]paletteColor, len(swatches)), Cached: hit}
	for i, sw := range swatches {
		resp.Colors[i] = paletteColor{Hex: sw.Hex(), Weight: sw.Weight}
	}
	w.Header().Set(HeaderCache, cacheStatus(hit))
	writeJSON(w, http.StatusOK, resp)
}

// parseOptions overlays query arguments on the server defaults. The
// remaining checks happen in the runner.
func (s *Server) parseOptions(r *http.Request) (pipeline.Options, error) {
	d := s.defaults
	opts := pipeline.Options{
		KernelSize:   d.KernelSize,
		ScaleFactor:  d.ScaleFactor,
		BlockSize:    d.BlockSize,
		MaxDimension: d.MaxDimension,
		JPEGQuality:  d.JPEGQuality,
		Workers:      d.Workers,
		Logger:       s.logger,
	}
	q := r.URL.Query()

	// Supplied values are checked here; the runner would treat zero as unset.
	ints := []struct {
		name     string
		dst      *int
		validate func(int) error
	}{
		{"kernel", &opts.KernelSize, perrors.ValidateKernelSize},
		{"block_size", &opts.BlockSize, validateBlockSize},
		{"max_dimension", &opts.MaxDimension, nil},
		{"quality", &opts.JPEGQuality, perrors.ValidateQuality},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, perrors.New(perrors.ErrCodeInvalidInput, "%s must be an integer, got %q", p.name, v)
		}
		if p.validate != nil {
			if err := p.validate(n); err != nil {
				return opts, err
			}
		}
		*p.dst = n
	}
	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, perrors.New(perrors.ErrCodeInvalidInput, "scale must be a number, got %q", v)
		}
		if err := perrors.ValidateScaleFactor(f); err != nil {
			return opts, err
		}
		opts.ScaleFactor = f
		if q.Get("block_size") == "" {
			opts.BlockSize = 0
		}
	}
	opts.Refresh = q.Get("refresh") == "true"
	return opts, nil
}

func validateBlockSize(n int) error {
	if n < 1 {
		return perrors.New(perrors.ErrCodeInvalidBlockSize, "block_size must be positive, got %d", n)
	}
	return nil
}

// readImage returns the uploaded bytes and their format. A zero Format
// means the pipeline will sniff the content.
func (s *Server) readImage(r *http.Request) ([]byte, media.Format, error) {
	var (
		data     []byte
		filename string
		err      error
	)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		file, hdr, ferr := r.FormFile("image")
		if errors.Is(ferr, http.ErrMissingFile) {
			return nil, media.Format{}, perrors.New(perrors.ErrCodeInvalidInput, `multipart field "image" is missing`)
		}
		if ferr != nil {
			return nil, media.Format{}, ferr
		}
		defer file.Close()
		filename = hdr.Filename
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		return nil, media.Format{}, err
	}
	if len(data) == 0 {
		return nil, media.Format{}, perrors.New(perrors.ErrCodeInvalidInput, "request has no image data")
	}

	if name := r.URL.Query().Get("format"); name != "" {
		f, err := media.FormatByName(name)
		return data, f, err
	}
	if filepath.Ext(filename) != "" {
		if f, err := media.FormatForPath(filename); err == nil {
			return data, f, nil
		}
	}
	return data, media.Format{}, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code, msg := string(perrors.GetCode(err)), perrors.UserMessage(err)
	switch {
	case status == http.StatusRequestEntityTooLarge:
		code, msg = "PAYLOAD_TOO_LARGE", "request body exceeds the upload limit"
	case code == "":
		code, msg = string(perrors.ErrCodeInternal), "internal error"
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, code, msg)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled):
		return 499
	case perrors.IsValidation(err):
		return http.StatusBadRequest
	case perrors.Is(err, perrors.ErrCodeUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case perrors.Is(err, perrors.ErrCodeDecode):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
