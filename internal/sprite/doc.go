// Package sprite treats a directory of same-size PNG frames as one sprite.
//
// A Sprite is validated eagerly when constructed and exposes the corrections
// that keep all of its frames aligned: Crop (shared bounding box), Bleed
// (low-alpha outline) and ApplyGradientMaps (recolored skin variants). Each
// correction processes frames concurrently and rewrites them in place.
//
// Validation failures are reported with the typed errors in this package; use
// IsValidation to tell them apart from I/O failures.
package sprite
