// Package fixer runs sprite corrections over a folder tree.
//
// A Fixer discovers sprite folders (optionally recursively, deepest first),
// resolves the corrections for each one from the configured methods and any
// name-suffix overrides, applies them, and optionally relocates the result
// under a destination root. Sprites are processed one at a time; a failure is
// recorded for that sprite and the batch moves on.
//
// # Name-Suffix Overrides
//
// A sprite folder name may end in one or more of:
//   - --c, --crop: always crop
//   - --nc, --no-crop: never crop
//   - --b, --bleed: always bleed
//   - --nb, --no-bleed: never bleed
//
// The suffixes are stripped from the folder name before processing.
//
// # Watch Mode
//
// Watch re-runs the batch once filesystem events have been quiet for the
// debounce period. At most one run is active at a time.
package fixer
