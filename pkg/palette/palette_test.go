package palette

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

// stripes returns an image whose left part is a and right part is b.
func stripes(w, h, split int, a, b color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < split {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return img
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodDominantColor, false},
		{"dominantcolor", MethodDominantColor, false},
		{"KMeans", MethodKMeans, false},
		{"median-cut", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	if MethodKMeans.String() != "kmeans" {
		t.Errorf("MethodKMeans.String() = %q", MethodKMeans.String())
	}
}

func TestExtractKMeansTwoColors(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	img := stripes(40, 20, 30, red, blue)

	got := Extract(img, 2, MethodKMeans)
	if len(got) != 2 {
		t.Fatalf("len(Extract) = %d, want 2", len(got))
	}
	seen := map[string]bool{}
	for _, s := range got {
		seen[s.Hex()] = true
	}
	if !seen["#ff0000"] || !seen["#0000ff"] {
		t.Errorf("Extract = [%s %s], want red and blue", got[0].Hex(), got[1].Hex())
	}
	if got[0].Weight < got[1].Weight {
		t.Errorf("swatches not ordered by weight: %v, %v", got[0].Weight, got[1].Weight)
	}
}

func TestExtractDominantColor(t *testing.T) {
	img := stripes(32, 32, 32, color.RGBA{10, 200, 30, 255}, color.RGBA{})
	got := Extract(img, 3, MethodDominantColor)
	if len(got) == 0 {
		t.Fatal("Extract returned no swatches")
	}
	if len(got) > 3 {
		t.Errorf("len(Extract) = %d, want at most 3", len(got))
	}
}

func TestExtractDegenerate(t *testing.T) {
	img := stripes(4, 4, 2, color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255})
	if got := Extract(img, 0, MethodKMeans); got != nil {
		t.Errorf("Extract(k=0) = %v, want nil", got)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if got := Extract(empty, 4, MethodDominantColor); got != nil {
		t.Errorf("Extract(empty) = %v, want nil", got)
	}
}

func TestSelectDiversePrefersDistantColors(t *testing.T) {
	cands := []Swatch{
		{Color: colorful.Color{R: 1, G: 0, B: 0}, Weight: 0.5},
		{Color: colorful.Color{R: 0.98, G: 0.02, B: 0}, Weight: 0.3},
		{Color: colorful.Color{R: 0, G: 0, B: 1}, Weight: 0.2},
	}
	got := selectDiverse(cands, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Hex() != "#ff0000" || got[1].Hex() != "#0000ff" {
		t.Errorf("selectDiverse = [%s %s], want [#ff0000 #0000ff]", got[0].Hex(), got[1].Hex())
	}
}

func TestSortByBrightness(t *testing.T) {
	s := []Swatch{
		{Color: colorful.Color{R: 1, G: 1, B: 1}},
		{Color: colorful.Color{}},
		{Color: colorful.Color{R: 0.5, G: 0.5, B: 0.5}},
	}
	SortByBrightness(s)
	want := []string{"#000000", "#808080", "#ffffff"}
	for i, w := range want {
		if got := s[i].Hex(); got != w {
			t.Errorf("s[%d] = %s, want %s", i, got, w)
		}
	}
}

func TestSwatchRGBA(t *testing.T) {
	s := Swatch{Color: colorful.Color{R: 1, G: 0.5, B: 0}}
	if got := s.RGBA(); got != (color.RGBA{255, 128, 0, 255}) {
		t.Errorf("RGBA() = %v", got)
	}
}
