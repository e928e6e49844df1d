// Package pixelart implements the blur-then-quantize transform that turns a
// raster image into a pixel-art rendering.
//
// # Overview
//
// The transform has two stages, both pure functions over a [Buffer]:
//
//  1. [Smooth]: a uniform (box) blur with an odd-sized [Kernel]. Windows that
//     cross the buffer edge replicate the nearest edge pixel.
//  2. [Quantize]: the buffer is cut into square blocks of a given side length,
//     starting at (0,0). Every pixel of a block is replaced by the block's
//     dominant color, the exact RGB triple that occurs most often in it.
//
// [Pixelate] composes the two. Neither stage mutates its input; each returns a
// freshly allocated buffer with the same dimensions.
//
// # Block Size
//
// The block side length is usually derived from the image with [BlockSize]:
//
//	size, err := pixelart.BlockSize(w, h, 0.05) // floor(min(w, h) * 0.05)
//
// When the block size does not divide a dimension, the last row or column of
// blocks is truncated to the pixels that remain. A block size larger than the
// image yields a single block.
//
// # Ties
//
// When several colors share the highest count inside a block, the color that
// sorts first by (R, G, B) wins. The result never depends on scan order.
//
// # Animation
//
// A [Sequence] holds the frames of an animated image. Frames carry no shared
// state, so callers may process them concurrently and reassemble the results
// in order.
//
// # Errors
//
// Invalid parameters fail fast with a coded error from pkg/errors:
// INVALID_KERNEL, INVALID_BLOCK_SIZE, INVALID_SCALE and EMPTY_BUFFER.
package pixelart
