package imaging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)

// InvalidColorError reports a color string that is not 6 or 8 hex digits.
type InvalidColorError struct {
	Value string
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("color %q is not valid hexadecimal (want RRGGBB or RRGGBBAA)", e.Value)
}

// Color is an immutable 8-bit RGBA value.
type Color struct {
	R uint8 `json:"red"`
	G uint8 `json:"green"`
	B uint8 `json:"blue"`
	A uint8 `json:"alpha"`
}

// NewColor returns the color with the given channels.
func NewColor(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// ParseColor parses "RRGGBB" or "RRGGBBAA", with or without a leading '#'.
// Alpha defaults to 255 when omitted.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if !hexColorPattern.MatchString(hex) {
		return Color{}, &InvalidColorError{Value: s}
	}

	rgb, err := colorful.Hex("#" + strings.ToLower(hex[:6]))
	if err != nil {
		return Color{}, &InvalidColorError{Value: s}
	}
	r, g, b := rgb.RGB255()

	a := uint64(255)
	if len(hex) == 8 {
		a, err = strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return Color{}, &InvalidColorError{Value: s}
		}
	}
	return Color{R: r, G: g, B: b, A: uint8(a)}, nil
}

// MustParseColor is like ParseColor but panics on invalid input.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the canonical lowercase RRGGBBAA form.
func (c Color) Hex() string {
	return fmt.Sprintf("%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// RGBHex returns the lowercase RRGGBB form.
func (c Color) RGBHex() string {
	return c.Hex()[:6]
}

// EqualRGB reports whether both colors share red, green and blue.
func (c Color) EqualRGB(other Color) bool {
	return c.R == other.R && c.G == other.G && c.B == other.B
}

// Colorful converts the color channels to a go-colorful value (alpha dropped).
func (c Color) Colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func (c Color) String() string {
	return "#" + c.Hex()
}
