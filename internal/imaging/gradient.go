package imaging

import (
	"fmt"
	"math"
	"regexp"
	"sort"
)

// Gradient positions are percentages of the intensity range.
const (
	MinGradientPosition = 0
	MaxGradientPosition = 100
)

// InvalidPositionError reports a gradient stop outside [0,100].
type InvalidPositionError struct {
	Position int
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("gradient position %d is outside [%d,%d]",
		e.Position, MinGradientPosition, MaxGradientPosition)
}

// DuplicatePositionError reports two stops at the same position.
type DuplicatePositionError struct {
	GradientMap string
	Position    int
}

func (e *DuplicatePositionError) Error() string {
	return fmt.Sprintf("gradient map %q has more than one stop at position %d", e.GradientMap, e.Position)
}

// MatchScope selects which name a gradient map filter is tested against.
type MatchScope int

const (
	// MatchSubimage tests the frame file name (without extension).
	MatchSubimage MatchScope = iota
	// MatchSprite tests the sprite directory name.
	MatchSprite
)

func (s MatchScope) String() string {
	if s == MatchSprite {
		return "sprite"
	}
	return "subimage"
}

// Filter restricts a gradient map to names matching Pattern.
type Filter struct {
	Pattern *regexp.Regexp
	Scope   MatchScope
}

// Stop is one color on a gradient ramp.
type Stop struct {
	Position int   `json:"position"`
	Color    Color `json:"color"`
}

// GradientMap is a named color ramp used to recolor grayscale frames.
//
// Stops are kept sorted by ascending position. A map without filters applies
// to every sprite and frame; otherwise it applies where any filter matches.
type GradientMap struct {
	Name    string
	Filters []Filter
	stops   []Stop
}

// NewGradientMap returns an empty gradient map.
func NewGradientMap(name string) *GradientMap {
	return &GradientMap{Name: name}
}

// AddStop parses hex and inserts a stop at position.
func (g *GradientMap) AddStop(position int, hex string) error {
	if position < MinGradientPosition || position > MaxGradientPosition {
		return &InvalidPositionError{Position: position}
	}
	c, err := ParseColor(hex)
	if err != nil {
		return err
	}
	for _, s := range g.stops {
		if s.Position == position {
			return &DuplicatePositionError{GradientMap: g.Name, Position: position}
		}
	}
	g.stops = append(g.stops, Stop{Position: position, Color: c})
	sort.Slice(g.stops, func(i, j int) bool {
		return g.stops[i].Position < g.stops[j].Position
	})
	return nil
}

// Stops returns a copy of the stops in ascending position order.
func (g *GradientMap) Stops() []Stop {
	return append([]Stop(nil), g.stops...)
}

// ColorAt returns the ramp color at position.
//
// Positions at or before the first stop return its color, at or after the last
// stop return its color. In between, each channel is linearly interpolated
// between the bracketing stops and floored:
//
//	floor(a.c + (p-posA)/(posB-posA) * (b.c - a.c))
//
// An empty map returns the zero Color.
func (g *GradientMap) ColorAt(position int) Color {
	if len(g.stops) == 0 {
		return Color{}
	}
	first, last := g.stops[0], g.stops[len(g.stops)-1]
	if position <= first.Position {
		return first.Color
	}
	if position >= last.Position {
		return last.Color
	}

	for i := 0; i < len(g.stops)-1; i++ {
		a, b := g.stops[i], g.stops[i+1]
		if position < a.Position || position > b.Position {
			continue
		}
		t := float64(position-a.Position) / float64(b.Position-a.Position)
		return Color{
			R: lerpChannel(a.Color.R, b.Color.R, t),
			G: lerpChannel(a.Color.G, b.Color.G, t),
			B: lerpChannel(a.Color.B, b.Color.B, t),
			A: lerpChannel(a.Color.A, b.Color.A, t),
		}
	}
	return last.Color
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(math.Floor(float64(a) + t*(float64(b)-float64(a))))
}

// AppliesToSprite reports whether any frame of the named sprite can be
// recolored by this map. Subimage filters defer the decision to AppliesTo.
func (g *GradientMap) AppliesToSprite(spriteName string) bool {
	if len(g.Filters) == 0 {
		return true
	}
	for _, f := range g.Filters {
		if f.Scope == MatchSubimage || f.Pattern.MatchString(spriteName) {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the map applies to a frame of a sprite.
func (g *GradientMap) AppliesTo(spriteName, frameName string) bool {
	if len(g.Filters) == 0 {
		return true
	}
	for _, f := range g.Filters {
		name := frameName
		if f.Scope == MatchSprite {
			name = spriteName
		}
		if f.Pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// Luminance weights (ITU-R BT.709) applied to non-gray pixels.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// ApplyGradient recolors the frame in place.
//
// Fully transparent pixels are skipped. Pixels with R=G=B use that value as
// their intensity, others use BT.709 luminance. The relative intensity picks
// ramp position floor(intensity*100); the pixel's color channels are replaced
// while its alpha is kept.
func (f *Frame) ApplyGradient(g *GradientMap) {
	w, h := f.Width(), f.Height()
	maxValue := float64(f.MaxValue())
	scale := uint16(1)
	if f.BitDepth() == 16 {
		scale = 257
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := f.Pixel(x, y)
			if f.hasAlpha && px.A == 0 {
				continue
			}

			var intensity float64
			if px.R == px.G && px.G == px.B {
				intensity = float64(px.R)
			} else {
				intensity = lumaR*float64(px.R) + lumaG*float64(px.G) + lumaB*float64(px.B)
			}
			position := int(math.Floor(intensity / maxValue * 100))

			c := g.ColorAt(position)
			f.SetPixel(x, y, Pixel{
				R: uint16(c.R) * scale,
				G: uint16(c.G) * scale,
				B: uint16(c.B) * scale,
				A: px.A,
			})
		}
	}
}
