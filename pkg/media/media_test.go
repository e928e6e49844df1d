package media

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/pixelart/pkg/core/pixelart"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
)

func makeTestBuffer(w, h int) pixelart.Buffer {
	b := pixelart.NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, pixelart.RGB{R: uint8(x * 20), G: uint8(y * 30), B: uint8((x + y) * 5)})
		}
	}
	return b
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"a/b/cat.png", "png", false},
		{"cat.JPG", "jpeg", false},
		{"cat.jpeg", "jpeg", false},
		{"anim.gif", "gif", false},
		{"scan.tif", "tiff", false},
		{"scan.tiff", "tiff", false},
		{"old.bmp", "bmp", false},
		{"web.webp", "webp", false},
		{"photo.avif", "", true},
		{"notes.txt", "", true},
		{"README", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := FormatForPath(tt.path)
			if tt.wantErr {
				if !perrors.Is(err, perrors.ErrCodeUnsupportedFormat) {
					t.Errorf("FormatForPath(%q) error = %v, want UNSUPPORTED_FORMAT", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatForPath(%q) error: %v", tt.path, err)
			}
			if f.Name != tt.want {
				t.Errorf("FormatForPath(%q) = %s, want %s", tt.path, f.Name, tt.want)
			}
		})
	}
}

func TestFormatByName(t *testing.T) {
	for _, name := range []string{"jpg", "JPEG", ".jpg"} {
		f, err := FormatByName(name)
		if err != nil || f.Name != "jpeg" {
			t.Errorf("FormatByName(%q) = %v, %v", name, f.Name, err)
		}
	}
	if _, err := FormatByName("heic"); err == nil {
		t.Error("FormatByName(heic) should fail")
	}
}

func TestFormatOutput(t *testing.T) {
	if got := WebP.Output(); got.Name != "png" {
		t.Errorf("WebP.Output() = %s, want png", got.Name)
	}
	if got := GIF.Output(); got.Name != "gif" {
		t.Errorf("GIF.Output() = %s, want gif", got.Name)
	}
	if got := JPEG.Ext(); got != ".jpg" {
		t.Errorf("JPEG.Ext() = %s, want .jpg", got)
	}
}

func TestStillPNGRoundTrip(t *testing.T) {
	src := makeTestBuffer(9, 7)
	data, err := EncodeBytes(NewStill(PNG, src), EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeBytes error: %v", err)
	}

	f, err := DetectFormat(data)
	if err != nil || f.Name != "png" {
		t.Fatalf("DetectFormat = %v, %v", f.Name, err)
	}

	img, err := DecodeBytes(data, PNG)
	if err != nil {
		t.Fatalf("DecodeBytes error: %v", err)
	}
	frames := img.Frames()
	if len(frames) != 1 {
		t.Fatalf("len(Frames()) = %d, want 1", len(frames))
	}
	if !frames[0].Equal(src) {
		t.Error("PNG round trip should be lossless")
	}
}

func TestStillJPEGKeepsDimensions(t *testing.T) {
	src := pixelart.Filled(16, 8, pixelart.RGB{R: 200, G: 100, B: 50})
	data, err := EncodeBytes(NewStill(JPEG, src), EncodeOptions{JPEGQuality: 90})
	if err != nil {
		t.Fatalf("EncodeBytes error: %v", err)
	}
	if f, _ := DetectFormat(data); f.Name != "jpeg" {
		t.Errorf("DetectFormat = %s, want jpeg", f.Name)
	}
	img, err := DecodeBytes(data, JPEG)
	if err != nil {
		t.Fatalf("DecodeBytes error: %v", err)
	}
	if got := img.Frames()[0]; got.W != 16 || got.H != 8 {
		t.Errorf("decoded %dx%d, want 16x8", got.W, got.H)
	}
}

func TestAnimatedRoundTrip(t *testing.T) {
	frames := pixelart.Sequence{
		pixelart.Filled(4, 3, pixelart.RGB{R: 255}),
		pixelart.Filled(4, 3, pixelart.RGB{G: 255}),
		pixelart.Filled(4, 3, pixelart.RGB{B: 255}),
	}
	anim, err := NewAnimated(GIF, frames, []int{10, 20, 30}, 0)
	if err != nil {
		t.Fatalf("NewAnimated error: %v", err)
	}

	data, err := EncodeBytes(anim, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeBytes error: %v", err)
	}
	img, err := DecodeBytes(data, GIF)
	if err != nil {
		t.Fatalf("DecodeBytes error: %v", err)
	}

	got, ok := img.(*Animated)
	if !ok {
		t.Fatalf("decoded %T, want *Animated", img)
	}
	if len(got.Frames()) != 3 {
		t.Fatalf("len(Frames()) = %d, want 3", len(got.Frames()))
	}
	for i, f := range got.Frames() {
		if !f.Equal(frames[i]) {
			t.Errorf("frame %d changed during round trip", i)
		}
	}
	if d := got.Delays(); d[0] != 10 || d[1] != 20 || d[2] != 30 {
		t.Errorf("Delays() = %v, want [10 20 30]", d)
	}
}

func TestDecodeGIFCompositesPartialFrames(t *testing.T) {
	pal := color.Palette{color.RGBA{0, 0, 0, 0}, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255}}

	// Frame 0 covers the whole 4x4 screen in red.
	f0 := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	for i := range f0.Pix {
		f0.Pix[i] = 1
	}
	// Frame 1 only paints the 2x2 bottom-right corner in blue.
	f1 := image.NewPaletted(image.Rect(2, 2, 4, 4), pal)
	for i := range f1.Pix {
		f1.Pix[i] = 2
	}

	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image:    []*image.Paletted{f0, f1},
		Delay:    []int{5, 5},
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone},
		Config:   image.Config{ColorModel: pal, Width: 4, Height: 4},
	})
	if err != nil {
		t.Fatalf("gif.EncodeAll error: %v", err)
	}

	img, err := DecodeBytes(buf.Bytes(), GIF)
	if err != nil {
		t.Fatalf("DecodeBytes error: %v", err)
	}
	frames := img.Frames()
	if len(frames) != 2 {
		t.Fatalf("len(Frames()) = %d, want 2", len(frames))
	}
	second := frames[1]
	if second.W != 4 || second.H != 4 {
		t.Fatalf("frame 1 is %dx%d, want full 4x4 screen", second.W, second.H)
	}
	if c := second.At(0, 0); c != (pixelart.RGB{R: 255}) {
		t.Errorf("frame 1 (0,0) = %v, want red carried over from frame 0", c)
	}
	if c := second.At(3, 3); c != (pixelart.RGB{B: 255}) {
		t.Errorf("frame 1 (3,3) = %v, want blue", c)
	}
}

func TestEncodeGIFManyColors(t *testing.T) {
	// 32x32 with distinct colors exceeds the 256-entry exact palette.
	src := pixelart.NewBuffer(32, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			src.Set(x, y, pixelart.RGB{R: uint8(x * 8), G: uint8(y * 8), B: 128})
		}
	}
	anim, err := NewAnimated(GIF, pixelart.Sequence{src}, nil, 0)
	if err != nil {
		t.Fatalf("NewAnimated error: %v", err)
	}
	data, err := EncodeBytes(anim, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeBytes error: %v", err)
	}
	img, err := DecodeBytes(data, GIF)
	if err != nil {
		t.Fatalf("DecodeBytes error: %v", err)
	}
	if f := img.Frames()[0]; f.W != 32 || f.H != 32 {
		t.Errorf("decoded %dx%d, want 32x32", f.W, f.H)
	}
}

func TestWithFramesValidation(t *testing.T) {
	still := NewStill(PNG, makeTestBuffer(4, 4))

	if _, err := still.WithFrames(nil); err == nil {
		t.Error("WithFrames(nil) should fail")
	}
	if _, err := still.WithFrames(pixelart.Sequence{makeTestBuffer(4, 4), makeTestBuffer(4, 4)}); err == nil {
		t.Error("WithFrames with extra frames should fail")
	}

	anim, _ := NewAnimated(GIF, pixelart.Sequence{makeTestBuffer(4, 4), makeTestBuffer(4, 4)}, nil, 0)
	if _, err := anim.WithFrames(pixelart.Sequence{makeTestBuffer(4, 4), makeTestBuffer(5, 4)}); err == nil {
		t.Error("WithFrames with mismatched frame sizes should fail")
	}

	next, err := still.WithFrames(pixelart.Sequence{makeTestBuffer(2, 2)})
	if err != nil {
		t.Fatalf("WithFrames error: %v", err)
	}
	if next.Format().Name != "png" {
		t.Errorf("WithFrames changed format to %s", next.Format().Name)
	}
}

func TestFit(t *testing.T) {
	img := NewStill(PNG, makeTestBuffer(40, 20))

	same, err := Fit(img, 0)
	if err != nil || same != Image(img) {
		t.Errorf("Fit(0) should return the input unchanged")
	}

	small, err := Fit(img, 10)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	f := small.Frames()[0]
	if f.W != 10 || f.H != 5 {
		t.Errorf("Fit(10) = %dx%d, want 10x5", f.W, f.H)
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	src := makeTestBuffer(6, 6)

	if err := WriteFile(path, NewStill(PNG, src), EncodeOptions{}); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	img, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !img.Frames()[0].Equal(src) {
		t.Error("ReadFile should return the written pixels")
	}

	_, err = ReadFile(filepath.Join(dir, "missing.png"))
	if !perrors.Is(err, perrors.ErrCodeFileNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want FILE_NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(bad); !perrors.Is(err, perrors.ErrCodeDecode) {
		t.Errorf("ReadFile(broken) error = %v, want DECODE_FAILED", err)
	}
}

func TestDetectFormatUnknown(t *testing.T) {
	if _, err := DetectFormat([]byte("hello world")); !perrors.Is(err, perrors.ErrCodeUnsupportedFormat) {
		t.Errorf("DetectFormat(text) error = %v", err)
	}
}
