package errors

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateScaleFactor checks that a block scale factor lies in (0, 1].
// NaN and infinities are rejected.
func ValidateScaleFactor(scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return New(ErrCodeInvalidScale, "scale factor must be a finite number")
	}
	if scale <= 0 || scale > 1 {
		return New(ErrCodeInvalidScale, "scale factor must be in (0, 1], got %g", scale)
	}
	return nil
}

// MaxKernelSize is the largest accepted kernel side. It keeps the window
// area within 64 bits.
const MaxKernelSize = 1<<32 - 1

// ValidateKernelSize checks a square kernel side length supplied by a user.
// The blur requires a positive odd size so that the window has a center pixel.
func ValidateKernelSize(size int) error {
	if size < 1 {
		return New(ErrCodeInvalidKernel, "kernel size must be positive, got %d", size)
	}
	if uint64(size) > MaxKernelSize {
		return New(ErrCodeInvalidKernel, "kernel size must not exceed %d, got %d", uint64(MaxKernelSize), size)
	}
	if size%2 == 0 {
		return New(ErrCodeInvalidKernel, "kernel size must be odd, got %d", size)
	}
	return nil
}

// ValidateQuality checks a JPEG quality setting.
func ValidateQuality(q int) error {
	if q < 1 || q > 100 {
		return New(ErrCodeInvalidInput, "jpeg quality must be within 1-100, got %d", q)
	}
	return nil
}

// ValidateFilename validates a client-supplied file name for safety.
// It ensures the name is a plain basename with an extension, without
// path components or control characters.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 255 characters
//   - No null bytes or control characters
//   - No path separators or traversal sequences
//   - Must carry an extension
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}

	const maxNameLength = 255
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidPath, "filename too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "filename contains invalid characters")
		}
	}

	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return New(ErrCodeInvalidPath, "filename cannot contain path components")
	}

	if filepath.Ext(name) == "" {
		return New(ErrCodeInvalidPath, "filename %q has no extension", name)
	}

	return nil
}
