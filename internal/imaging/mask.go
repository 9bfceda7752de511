package imaging

// Mask is a binary classification of a frame's pixels.
type Mask struct {
	width  int
	height int
	bits   []bool
}

// NewMask returns an all-false mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{width: width, height: height, bits: make([]bool, width*height)}
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// At reports whether (x, y) is set. Coordinates outside the mask are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x]
}

// Set marks (x, y) as v.
func (m *Mask) Set(x, y int, v bool) {
	m.bits[y*m.width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Dilate returns the mask grown by one pixel using a full 3x3 structuring element.
func (m *Mask) Dilate() *Mask {
	out := NewMask(m.width, m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if !m.bits[y*m.width+x] {
				continue
			}
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, m.height-1)
					px := clamp(x+kx, 0, m.width-1)
					out.bits[py*m.width+px] = true
				}
			}
		}
	}
	return out
}

// AndNot returns the pixels set in m but not in other.
func (m *Mask) AndNot(other *Mask) *Mask {
	out := NewMask(m.width, m.height)
	for i, b := range m.bits {
		out.bits[i] = b && !other.bits[i]
	}
	return out
}

// Bounds returns the smallest box containing every set pixel. ok is false for
// an empty mask.
func (m *Mask) Bounds() (box BoundingBox, ok bool) {
	box = BoundingBox{Left: m.width, Top: m.height, Right: -1, Bottom: -1}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if !m.bits[y*m.width+x] {
				continue
			}
			box.Left = min(box.Left, x)
			box.Right = max(box.Right, x)
			box.Top = min(box.Top, y)
			box.Bottom = max(box.Bottom, y)
		}
	}
	if box.Right < 0 {
		return BoundingBox{}, false
	}
	return box, true
}

// ForegroundMask marks pixels whose alpha exceeds threshold. Frames without an
// alpha channel are entirely foreground.
func (f *Frame) ForegroundMask(threshold uint16) *Mask {
	w, h := f.Width(), f.Height()
	m := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.bits[y*w+x] = !f.hasAlpha || f.Pixel(x, y).A > threshold
		}
	}
	return m
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
