package imaging

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/draw"
	_ "image/png" // Register PNG format decoder
	"os"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Pixel holds non-premultiplied channel values at the frame's native bit depth.
//
// For 8-bit frames every channel is in 0-255, for 16-bit frames in 0-65535.
// Frames without an alpha channel always report A at the maximum value.
type Pixel struct {
	R, G, B, A uint16
}

// PixelAddressable is implemented by pixel buffers whose channels can be read
// and written individually at native bit depth.
type PixelAddressable interface {
	Width() int
	Height() int
	MaxValue() uint16
	Pixel(x, y int) Pixel
	SetPixel(x, y int, p Pixel)
}

// Maskable is implemented by pixel buffers that can classify their pixels
// into foreground and background.
type Maskable interface {
	ForegroundMask(threshold uint16) *Mask
}

// Frame is one decoded sprite subimage.
//
// Exactly one of nrgba (8-bit) or nrgba64 (16-bit) is set. Both are anchored
// at the origin, so pixel (x, y) lives at Pix offset y*Stride + x*bytesPerPixel.
type Frame struct {
	nrgba    *image.NRGBA
	nrgba64  *image.NRGBA64
	hasAlpha bool
}

var (
	_ PixelAddressable = (*Frame)(nil)
	_ Maskable         = (*Frame)(nil)
)

// NewFrame copies img into a Frame, keeping 16-bit precision when the source
// has it. The returned frame never aliases img.
func NewFrame(img image.Image) *Frame {
	f := &Frame{hasAlpha: detectAlpha(img)}
	if is16Bit(img) {
		f.nrgba64 = toNRGBA64(img)
	} else {
		f.nrgba = imaging.Clone(img)
	}
	return f
}

// LoadFrame decodes the PNG at path.
func LoadFrame(path string) (*Frame, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode frame %q", path)
	}
	return NewFrame(img), nil
}

// Save encodes the frame as PNG at path, replacing any existing file. Frames
// with an alpha channel are written with one even when every pixel is opaque.
func (f *Frame) Save(path string) error {
	img := f.Image()
	if f.hasAlpha {
		img = translucent{img}
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return errors.Wrapf(err, "failed to encode frame %q", path)
	}
	return nil
}

// translucent hides Opaque from the PNG encoder, which otherwise drops the
// alpha channel of fully opaque NRGBA and NRGBA64 images.
type translucent struct {
	image.Image
}

func (translucent) Opaque() bool { return false }

// ReadSize returns the pixel dimensions of the image at path by reading only
// its header.
func ReadSize(path string) (width, height int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to open image")
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed to read image header %q", path)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, errors.Errorf("%q has invalid dimensions %dx%d", path, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

// Image returns the frame's backing image. Mutating it mutates the frame.
func (f *Frame) Image() image.Image {
	if f.nrgba64 != nil {
		return f.nrgba64
	}
	return f.nrgba
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Image().Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Image().Bounds().Dy()
}

// BitDepth returns 8 or 16.
func (f *Frame) BitDepth() int {
	if f.nrgba64 != nil {
		return 16
	}
	return 8
}

// HasAlpha reports whether the frame carries an alpha channel.
func (f *Frame) HasAlpha() bool {
	return f.hasAlpha
}

// Channels returns 4 for frames with alpha and 3 otherwise. Grayscale sources
// are expanded to three identical color channels.
func (f *Frame) Channels() int {
	if f.hasAlpha {
		return 4
	}
	return 3
}

// MaxValue returns the largest channel value at the frame's bit depth.
func (f *Frame) MaxValue() uint16 {
	if f.nrgba64 != nil {
		return 0xffff
	}
	return 0xff
}

// Pixel returns the channels at (x, y).
func (f *Frame) Pixel(x, y int) Pixel {
	if f.nrgba64 != nil {
		p := f.nrgba64.Pix[f.nrgba64.PixOffset(x, y):]
		return Pixel{
			R: uint16(p[0])<<8 | uint16(p[1]),
			G: uint16(p[2])<<8 | uint16(p[3]),
			B: uint16(p[4])<<8 | uint16(p[5]),
			A: uint16(p[6])<<8 | uint16(p[7]),
		}
	}
	p := f.nrgba.Pix[f.nrgba.PixOffset(x, y):]
	return Pixel{R: uint16(p[0]), G: uint16(p[1]), B: uint16(p[2]), A: uint16(p[3])}
}

// SetPixel overwrites the channels at (x, y). The alpha value is ignored for
// frames without an alpha channel.
func (f *Frame) SetPixel(x, y int, px Pixel) {
	if !f.hasAlpha {
		px.A = f.MaxValue()
	}
	if f.nrgba64 != nil {
		p := f.nrgba64.Pix[f.nrgba64.PixOffset(x, y):]
		p[0], p[1] = uint8(px.R>>8), uint8(px.R)
		p[2], p[3] = uint8(px.G>>8), uint8(px.G)
		p[4], p[5] = uint8(px.B>>8), uint8(px.B)
		p[6], p[7] = uint8(px.A>>8), uint8(px.A)
		return
	}
	p := f.nrgba.Pix[f.nrgba.PixOffset(x, y):]
	p[0], p[1], p[2], p[3] = uint8(px.R), uint8(px.G), uint8(px.B), uint8(px.A)
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{hasAlpha: f.hasAlpha}
	if f.nrgba64 != nil {
		c.nrgba64 = toNRGBA64(f.nrgba64)
	} else {
		c.nrgba = imaging.Clone(f.nrgba)
	}
	return c
}

// PixelBytes returns the raw decoded pixel byte sequence: channels in RGB(A)
// order, row-major, 16-bit values big-endian. Alpha is included only when the
// frame has an alpha channel.
func (f *Frame) PixelBytes() []byte {
	w, h := f.Width(), f.Height()
	bytesPerChannel := f.BitDepth() / 8
	out := make([]byte, 0, w*h*f.Channels()*bytesPerChannel)

	var pix []byte
	var stride int
	if f.nrgba64 != nil {
		pix, stride = f.nrgba64.Pix, f.nrgba64.Stride
	} else {
		pix, stride = f.nrgba.Pix, f.nrgba.Stride
	}
	pixelSize := 4 * bytesPerChannel
	colorSize := 3 * bytesPerChannel
	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*pixelSize]
		if f.hasAlpha {
			out = append(out, row...)
			continue
		}
		for x := 0; x < w; x++ {
			out = append(out, row[x*pixelSize:x*pixelSize+colorSize]...)
		}
	}
	return out
}

// Checksum returns the hex SHA-256 of PixelBytes.
func (f *Frame) Checksum() string {
	sum := sha256.Sum256(f.PixelBytes())
	return hex.EncodeToString(sum[:])
}

// Equal reports whether both frames have the same dimensions, channel count,
// bit depth, alpha presence and pixel bytes.
func (f *Frame) Equal(other *Frame) bool {
	if other == nil {
		return false
	}
	return f.Width() == other.Width() &&
		f.Height() == other.Height() &&
		f.Channels() == other.Channels() &&
		f.BitDepth() == other.BitDepth() &&
		f.hasAlpha == other.hasAlpha &&
		f.Checksum() == other.Checksum()
}

// ImagesAreEqual loads two PNG files and reports whether they are pixel-equal.
func ImagesAreEqual(pathA, pathB string) (bool, error) {
	a, err := LoadFrame(pathA)
	if err != nil {
		return false, err
	}
	b, err := LoadFrame(pathB)
	if err != nil {
		return false, err
	}
	return a.Equal(b), nil
}

func is16Bit(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA64, *image.RGBA64, *image.Gray16:
		return true
	}
	return false
}

// detectAlpha mirrors the PNG decoder: color types with an alpha channel (or a
// tRNS chunk) decode to NRGBA/NRGBA64, paletted images carry alpha in the palette.
func detectAlpha(img image.Image) bool {
	switch src := img.(type) {
	case *image.NRGBA, *image.NRGBA64:
		return true
	case *image.Paletted:
		for _, c := range src.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	case *image.Gray, *image.Gray16:
		return false
	case interface{ Opaque() bool }:
		return !src.Opaque()
	}
	return true
}

func toNRGBA64(img image.Image) *image.NRGBA64 {
	b := img.Bounds()
	dst := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA64); ok {
		rowSize := b.Dx() * 8
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowSize], src.Pix[i:i+rowSize])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
