package media

import (
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

// Format describes an image container.
type Format struct {
	Name       string   // canonical name, e.g. "jpeg"
	Extensions []string // lower-case extensions including the dot; the first is preferred
	MIME       string
	Animated   bool // decodes to a frame sequence
	Encodable  bool // results can be written back in this format
}

// Supported formats.
var (
	PNG  = Format{Name: "png", Extensions: []string{".png"}, MIME: "image/png", Encodable: true}
	JPEG = Format{Name: "jpeg", Extensions: []string{".jpg", ".jpeg"}, MIME: "image/jpeg", Encodable: true}
	GIF  = Format{Name: "gif", Extensions: []string{".gif"}, MIME: "image/gif", Animated: true, Encodable: true}
	BMP  = Format{Name: "bmp", Extensions: []string{".bmp", ".dib"}, MIME: "image/bmp", Encodable: true}
	TIFF = Format{Name: "tiff", Extensions: []string{".tiff", ".tif"}, MIME: "image/tiff", Encodable: true}
	WebP = Format{Name: "webp", Extensions: []string{".webp"}, MIME: "image/webp"}
)

// Formats lists every supported format.
var Formats = []Format{PNG, JPEG, GIF, BMP, TIFF, WebP}

// Ext returns the preferred file extension.
func (f Format) Ext() string {
	return f.Extensions[0]
}

// Output returns the format a converted image is written in.
// Formats that cannot be encoded fall back to PNG.
func (f Format) Output() Format {
	if f.Encodable {
		return f
	}
	return PNG
}

func (f Format) imagingFormat() imaging.Format {
	switch f.Name {
	case JPEG.Name:
		return imaging.JPEG
	case GIF.Name:
		return imaging.GIF
	case BMP.Name:
		return imaging.BMP
	case TIFF.Name:
		return imaging.TIFF
	default:
		return imaging.PNG
	}
}

// FormatForPath returns the format matching the file extension of path.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Format{}, perrors.New(perrors.ErrCodeUnsupportedFormat, "%s has no file extension", filepath.Base(path))
	}
	for _, f := range Formats {
		if slices.Contains(f.Extensions, ext) {
			return f, nil
		}
	}
	return Format{}, perrors.New(perrors.ErrCodeUnsupportedFormat, "unsupported image format %q", ext)
}

// FormatByName looks up a format by name or extension ("jpg", ".png", "tif").
func FormatByName(name string) (Format, error) {
	n := strings.ToLower(strings.TrimPrefix(name, "."))
	for _, f := range Formats {
		if f.Name == n || slices.Contains(f.Extensions, "."+n) {
			return f, nil
		}
	}
	return Format{}, perrors.New(perrors.ErrCodeUnsupportedFormat, "unsupported image format %q", name)
}

// DetectFormat sniffs the container from the leading bytes of data.
func DetectFormat(data []byte) (Format, error) {
	if len(data) >= 4 {
		if h := string(data[:4]); h == "II*\x00" || h == "MM\x00*" {
			return TIFF, nil
		}
	}
	mime := http.DetectContentType(data)
	for _, f := range Formats {
		if f.MIME == mime {
			return f, nil
		}
	}
	return Format{}, perrors.New(perrors.ErrCodeUnsupportedFormat, "unrecognized image content (%s)", mime)
}
