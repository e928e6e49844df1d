// Package pkg provides the core libraries for pixelart.
//
// # Overview
//
// Pixelart turns images into pixel art in two passes: a box blur that
// smooths away noise, then a block quantizer that repaints every square
// block in its most frequent color. The pkg directory is organized into
// three areas:
//
//  1. [core/pixelart] - Pure image algorithms on RGB buffers
//  2. [media] and [palette] - Container codecs and color reports
//  3. [pipeline] - Orchestration shared by the CLI and the HTTP server
//
// # Architecture
//
// The data flow of one conversion:
//
//	encoded bytes (file, upload or URL)
//	         ↓
//	    [media] decode, composite GIF frames, optional downscale
//	         ↓
//	    [core/pixelart] Smooth then Quantize, one frame per goroutine
//	         ↓
//	    [media] encode in the output format
//	         ↓
//	    [cache] keyed by the input hash and every output-affecting option
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/pixelart/pkg/core/pixelart"
//	    "github.com/matzehuels/pixelart/pkg/media"
//	)
//
//	img, _ := media.ReadFile("cat.jpg")
//	frame := img.Frames()[0]
//
//	size, _ := pixelart.BlockSize(frame.W, frame.H, 0.05)
//	out, _ := pixelart.Pixelate(frame, pixelart.SquareKernel(9), size)
//
//	next, _ := img.WithFrames(pixelart.Sequence{out})
//	media.WriteFile("pixelated_cat.jpg", next, media.EncodeOptions{})
//
// # Main Packages
//
// ## Core Domain Logic
//
// [core/pixelart] - Buffer, Kernel and Sequence types with the clamp-to-edge
// box blur, block tiling and exact-color majority quantizer. No I/O.
//
// ## Media
//
// [media] - Format table, sniffing, the Still/Animated image abstraction,
// GIF compositing and encoding, and Fit for capping input size.
//
// [palette] - Dominant color extraction (dominantcolor or k-means) with a
// perceptual diversity pass.
//
// ## Infrastructure
//
// [pipeline] - Options, per-frame parallel processing, the caching Runner and
// directory batches with per-file fault isolation.
//
// [cache] - File, Redis and null backends behind one interface, plus keyers.
//
// [config] - Layered configuration: defaults, TOML file, .env, environment.
//
// [server] - chi-based HTTP API over the pipeline.
//
// [httputil] - Remote image downloads with retry.
//
// [observability] - Hook registry for conversion, cache and HTTP events.
//
// [errors] - Code-based errors shared by every layer.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/core/pixelart/...      # Specific package
//	go test -run Example                 # Examples only
//
// [core/pixelart]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/core/pixelart
// [media]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/media
// [palette]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/palette
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/server
// [httputil]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/pixelart/pkg/errors
package pkg
