package imaging

import (
	"math"

	"github.com/pkg/errors"
)

// ErrNoAlphaChannel is returned when an operation needs transparency
// information the frame does not carry.
var ErrNoAlphaChannel = errors.New("frame has no alpha channel")

// bleedAlphaFraction caps the alpha of synthesized outline pixels as a
// fraction of 2^bitDepth.
const bleedAlphaFraction = 0.02

// BleedOptions tunes Bleed.
type BleedOptions struct {
	// CleanVendorBorders removes the opaque white fringe some authoring tools
	// leave around soft edges before the outline is computed.
	CleanVendorBorders bool
}

// BleedAlphaCap returns the largest alpha Bleed will ever write for a frame of
// the given bit depth: ceil(0.02 * 2^bitDepth).
func BleedAlphaCap(bitDepth int) uint16 {
	return uint16(math.Ceil(bleedAlphaFraction * float64(uint32(1)<<bitDepth)))
}

// Bleed adds a low-alpha ring of foreground color just outside the frame's
// visible silhouette so that texture filtering samples a plausible color at
// the edge instead of transparent black.
//
// # Algorithm
//
//  1. Optionally clear vendor-injected opaque white borders.
//  2. foreground = pixels with alpha above BleedAlphaCap.
//  3. outline = foreground dilated by a 3x3 element, minus foreground.
//  4. Each outline pixel with foreground 8-neighbors gets the rounded mean of
//     their colors and alpha ceil(min(minNeighborAlpha*0.5, 0.02*2^bitDepth)).
//
// Outline pixels never exceed the foreground threshold, so a second pass finds
// the same foreground and reproduces the same pixels. Existing pixels with
// alpha at or below BleedAlphaCap count as background and may be overwritten.
//
// Returns whether any pixel changed.
func (f *Frame) Bleed(opts BleedOptions) (bool, error) {
	if !f.hasAlpha {
		return false, ErrNoAlphaChannel
	}

	changed := false
	if opts.CleanVendorBorders {
		changed = f.clearWhiteBorders()
	}

	w, h := f.Width(), f.Height()
	alphaCap := BleedAlphaCap(f.BitDepth())
	capValue := bleedAlphaFraction * float64(uint32(1)<<f.BitDepth())

	foreground := f.ForegroundMask(alphaCap)
	outline := foreground.Dilate().AndNot(foreground)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !outline.At(x, y) {
				continue
			}

			var sumR, sumG, sumB float64
			var count int
			minAlpha := uint16(math.MaxUint16)
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					if (kx == 0 && ky == 0) || !foreground.At(x+kx, y+ky) {
						continue
					}
					n := f.Pixel(x+kx, y+ky)
					sumR += float64(n.R)
					sumG += float64(n.G)
					sumB += float64(n.B)
					minAlpha = min(minAlpha, n.A)
					count++
				}
			}
			if count == 0 {
				continue
			}

			px := Pixel{
				R: uint16(math.Round(sumR / float64(count))),
				G: uint16(math.Round(sumG / float64(count))),
				B: uint16(math.Round(sumB / float64(count))),
				A: uint16(math.Ceil(math.Min(float64(minAlpha)*0.5, capValue))),
			}
			if f.Pixel(x, y) != px {
				f.SetPixel(x, y, px)
				changed = true
			}
		}
	}
	return changed, nil
}

// clearWhiteBorders replaces fully opaque white pixels that touch a fully
// transparent pixel with transparent black. Only pixels on the original
// border are cleared; the pass does not cascade inward.
func (f *Frame) clearWhiteBorders() bool {
	w, h := f.Width(), f.Height()
	maxValue := f.MaxValue()
	white := Pixel{R: maxValue, G: maxValue, B: maxValue, A: maxValue}

	var border []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if f.Pixel(x, y) != white {
				continue
			}
			if f.touchesTransparent(x, y) {
				border = append(border, y*w+x)
			}
		}
	}
	for _, i := range border {
		f.SetPixel(i%w, i/w, Pixel{})
	}
	return len(border) > 0
}

func (f *Frame) touchesTransparent(x, y int) bool {
	w, h := f.Width(), f.Height()
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			px, py := x+kx, y+ky
			if (kx == 0 && ky == 0) || px < 0 || py < 0 || px >= w || py >= h {
				continue
			}
			if f.Pixel(px, py).A == 0 {
				return true
			}
		}
	}
	return false
}
