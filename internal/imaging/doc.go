// Package imaging provides the pixel-level operations used to normalize sprite frames.
//
// A Frame is a decoded PNG held in its native bit depth (8 or 16 bits per channel)
// in non-premultiplied form. The package implements the per-frame building blocks
// of sprite correction: foreground masks and bounding boxes, cropping, edge
// bleeding, hex colors and gradient-map recoloring. All operations work on a
// coordinate system where (0,0) is the top-left pixel, X increases rightward and
// Y increases downward.
//
// # Bounding Boxes
//
// Unlike image.Rectangle, a BoundingBox is inclusive on all four sides:
//   - (Left, Top) is the top-left foreground pixel
//   - (Right, Bottom) is the bottom-right foreground pixel
//   - Width = Right - Left + 1, Height = Bottom - Top + 1
//
// # Pixel Checksums
//
// Frame.Checksum hashes the decoded pixel bytes only, so two files holding the
// same pixels compare equal regardless of path, compression level or ancillary
// PNG chunks.
//
// # Thread Safety
//
// The FrameCache type is safe for concurrent use. Individual frame operations
// mutate the receiver and must not be called concurrently on the same Frame.
// Different frames can be processed concurrently.
package imaging
