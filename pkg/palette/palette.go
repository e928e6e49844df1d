// Package palette reports the colors that dominate an image.
//
// Two extraction methods are available. [MethodDominantColor] asks
// cenkalti/dominantcolor for weighted candidates; [MethodKMeans] clusters a
// subsample of the pixels in RGB space. Both then pick k candidates greedily
// so that the result is spread out in CIE Lab while still favoring heavy
// colors.
//
// Pixel-art output has few distinct colors, so running Extract on a converted
// image gives a usable swatch of the whole picture.
package palette

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Method selects the extraction algorithm.
type Method int

const (
	MethodDominantColor Method = iota
	MethodKMeans
)

// maxSamples bounds the number of pixels handed to kmeans.
const maxSamples = 12000

func (m Method) String() string {
	if m == MethodKMeans {
		return "kmeans"
	}
	return "dominantcolor"
}

// ParseMethod converts a command-line name into a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dominantcolor", "dominant":
		return MethodDominantColor, nil
	case "kmeans", "k-means":
		return MethodKMeans, nil
	}
	return 0, fmt.Errorf("unknown palette method %q (want dominantcolor or kmeans)", s)
}

// Swatch is an extracted color with its relative weight in [0,1].
type Swatch struct {
	Color  colorful.Color
	Weight float64
}

// Hex returns the color as "#rrggbb".
func (s Swatch) Hex() string { return s.Color.Clamped().Hex() }

// Extract returns up to k swatches, heaviest first. The kmeans method falls
// back to dominantcolor when clustering yields nothing.
func Extract(img image.Image, k int, method Method) []Swatch {
	if k <= 0 || img.Bounds().Empty() {
		return nil
	}
	if method == MethodKMeans {
		if out := extractKMeans(img, k); len(out) > 0 {
			return out
		}
	}
	return extractDominant(img, k)
}

func extractDominant(img image.Image, k int) []Swatch {
	found := dominantcolor.FindWeight(img, max(24, k*8))
	cands := make([]Swatch, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		cands = append(cands, Swatch{Color: col.Clamped(), Weight: c.Weight})
	}
	return selectDiverse(cands, k)
}

func extractKMeans(img image.Image, k int) []Swatch {
	b := img.Bounds()
	step := 1
	if n := b.Dx() * b.Dy(); n > maxSamples {
		step = int(math.Sqrt(float64(n)/maxSamples)) + 1
	}

	var data clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			data = append(data, clusters.Coordinates{
				float64(r) / 0xffff,
				float64(g) / 0xffff,
				float64(bl) / 0xffff,
			})
		}
	}
	if len(data) == 0 {
		return nil
	}

	cc, err := kmeans.New().Partition(data, min(max(k*4, k+2), len(data)))
	if err != nil {
		return nil
	}

	cands := make([]Swatch, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 3 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		cands = append(cands, Swatch{Color: col, Weight: float64(len(c.Observations)) / float64(len(data))})
	}
	return selectDiverse(cands, k)
}

// selectDiverse seeds with the heaviest candidate and then repeatedly adds
// the one farthest (in Lab) from everything chosen, scaled by its weight.
// The result is ordered by weight, heaviest first.
func selectDiverse(cands []Swatch, k int) []Swatch {
	if len(cands) == 0 {
		return nil
	}
	k = min(k, len(cands))

	maxW := 0.0
	for i := range cands {
		if cands[i].Weight <= 0 {
			cands[i].Weight = 1e-6
		}
		maxW = max(maxW, cands[i].Weight)
	}

	chosen := make([]int, 0, k)
	used := make([]bool, len(cands))
	seed := 0
	for i := range cands {
		if cands[i].Weight > cands[seed].Weight {
			seed = i
		}
	}
	chosen = append(chosen, seed)
	used[seed] = true

	for len(chosen) < k {
		best, bestScore := -1, -1.0
		for i := range cands {
			if used[i] {
				continue
			}
			nearest := math.MaxFloat64
			for _, j := range chosen {
				nearest = min(nearest, cands[i].Color.DistanceLab(cands[j].Color))
			}
			score := nearest * (0.55 + 0.45*math.Sqrt(cands[i].Weight/maxW))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		chosen = append(chosen, best)
		used[best] = true
	}

	out := make([]Swatch, len(chosen))
	for i, idx := range chosen {
		out[i] = cands[idx]
	}
	slices.SortStableFunc(out, func(a, b Swatch) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	return out
}

// SortByBrightness orders swatches from darkest to brightest by relative
// luminance.
func SortByBrightness(s []Swatch) {
	slices.SortStableFunc(s, func(a, b Swatch) int {
		la, lb := luminance(a.Color), luminance(b.Color)
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
}

func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// RGBA converts a swatch to an opaque color.RGBA.
func (s Swatch) RGBA() color.RGBA {
	r, g, b := s.Color.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
