// Package media decodes and encodes the containers that pixelart reads and
// writes, and exposes them through a single [Image] abstraction.
//
// # Capabilities
//
// An [Image] is either a [Still] (one frame) or an [Animated] image (an
// ordered frame sequence plus timing). Callers never branch on the concrete
// type: they read [Image.Frames], transform each frame, and hand the results
// back through [Image.WithFrames] before calling [Image.Encode]. Adding a new
// container means adding a [Format] and, if it animates, a decoder that
// produces full frames. The transform itself is untouched.
//
// # Formats
//
//   - png, jpeg, bmp, tiff: decoded and encoded with disintegration/imaging
//     (EXIF orientation is applied on decode)
//   - gif: decoded with image/gif; partial frames are composited onto the
//     logical screen so that every frame is a complete picture
//   - webp: decode only (golang.org/x/image/webp); output is written as png
//
// Use [FormatForPath] or [FormatByName] to look up a format and
// [Format.Output] to find the format a result will be written in.
package media
