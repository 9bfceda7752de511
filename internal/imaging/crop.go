package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// BoundingBox is an inclusive pixel rectangle.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// FullBox returns the box covering a whole width x height canvas.
func FullBox(width, height int) BoundingBox {
	return BoundingBox{Left: 0, Top: 0, Right: width - 1, Bottom: height - 1}
}

// Width returns the number of columns in the box.
func (b BoundingBox) Width() int { return b.Right - b.Left + 1 }

// Height returns the number of rows in the box.
func (b BoundingBox) Height() int { return b.Bottom - b.Top + 1 }

// Rect converts the box to a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right+1, b.Bottom+1)
}

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		Left:   min(b.Left, other.Left),
		Top:    min(b.Top, other.Top),
		Right:  max(b.Right, other.Right),
		Bottom: max(b.Bottom, other.Bottom),
	}
}

// Pad grows the box by padding pixels on every side, clamped to a
// width x height canvas.
func (b BoundingBox) Pad(padding, width, height int) BoundingBox {
	return BoundingBox{
		Left:   clamp(b.Left-padding, 0, width-1),
		Top:    clamp(b.Top-padding, 0, height-1),
		Right:  clamp(b.Right+padding, 0, width-1),
		Bottom: clamp(b.Bottom+padding, 0, height-1),
	}
}

// Covers reports whether the box spans an entire width x height canvas.
func (b BoundingBox) Covers(width, height int) bool {
	return b == FullBox(width, height)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.Left, b.Top, b.Right, b.Bottom)
}

// UnionBoxes returns the union of all boxes. It panics when boxes is empty.
func UnionBoxes(boxes ...BoundingBox) BoundingBox {
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = out.Union(b)
	}
	return out
}

// ForegroundBox returns the bounding box of all pixels with non-zero alpha.
// Frames without alpha, and frames with no foreground at all, yield the full
// canvas.
func (f *Frame) ForegroundBox() BoundingBox {
	if box, ok := f.ForegroundMask(0).Bounds(); ok {
		return box
	}
	return FullBox(f.Width(), f.Height())
}

// Crop returns a new frame holding the pixels inside box.
func (f *Frame) Crop(box BoundingBox) (*Frame, error) {
	w, h := f.Width(), f.Height()

	if box.Left < 0 || box.Top < 0 || box.Right >= w || box.Bottom >= h {
		return nil, fmt.Errorf("crop region %s outside frame bounds (0,0)-(%d,%d)",
			box, w-1, h-1)
	}
	if box.Left > box.Right || box.Top > box.Bottom {
		return nil, fmt.Errorf("invalid crop region %s: left must be <= right, top must be <= bottom", box)
	}

	out := &Frame{hasAlpha: f.hasAlpha}
	if f.nrgba64 != nil {
		out.nrgba64 = toNRGBA64(f.nrgba64.SubImage(box.Rect()))
	} else {
		out.nrgba = imaging.Crop(f.nrgba, box.Rect())
	}
	return out, nil
}
