package imaging

import (
	"errors"
	"image"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestGradient(t *testing.T) *GradientMap {
	t.Helper()
	g := NewGradientMap("test")
	for _, s := range []struct {
		pos int
		hex string
	}{
		{99, "#222222"},
		{11, "#eeeeee"},
		{22, "#090909"},
	} {
		if err := g.AddStop(s.pos, s.hex); err != nil {
			t.Fatalf("AddStop(%d, %q) failed: %v", s.pos, s.hex, err)
		}
	}
	return g
}

func TestGradientMap_StopsSorted(t *testing.T) {
	g := newTestGradient(t)

	want := []Stop{
		{Position: 11, Color: MustParseColor("eeeeee")},
		{Position: 22, Color: MustParseColor("090909")},
		{Position: 99, Color: MustParseColor("222222")},
	}
	if diff := cmp.Diff(want, g.Stops()); diff != "" {
		t.Errorf("Stops mismatch (-want +got):\n%s", diff)
	}
}

func TestGradientMap_ColorAt(t *testing.T) {
	g := newTestGradient(t)

	tests := []struct {
		position int
		want     string
	}{
		{0, "eeeeeeff"},
		{11, "eeeeeeff"},
		{100, "222222ff"},
		{99, "222222ff"},
		{22, "090909ff"},
		// floor((44-22)/(99-22) * (0x22-0x09) + 0x09) = 16
		{44, "101010ff"},
		// floor(0xee + (16-11)/(22-11) * (0x09-0xee)) = 133
		{16, "858585ff"},
	}
	for _, tt := range tests {
		if got := g.ColorAt(tt.position).Hex(); got != tt.want {
			t.Errorf("ColorAt(%d): got %s, want %s", tt.position, got, tt.want)
		}
	}
}

func TestGradientMap_ColorAt_InterpolatesAlpha(t *testing.T) {
	g := NewGradientMap("fade")
	if err := g.AddStop(0, "00000000"); err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}
	if err := g.AddStop(100, "ffffffff"); err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}
	if got, want := g.ColorAt(50), NewColor(127, 127, 127, 127); got != want {
		t.Errorf("ColorAt(50): got %+v, want %+v", got, want)
	}
}

func TestGradientMap_ColorAt_Empty(t *testing.T) {
	if got := NewGradientMap("empty").ColorAt(50); got != (Color{}) {
		t.Errorf("ColorAt on an empty map: got %+v, want zero", got)
	}
}

func TestGradientMap_AddStop_Invalid(t *testing.T) {
	g := newTestGradient(t)

	var posErr *InvalidPositionError
	if err := g.AddStop(101, "#ffffff"); !errors.As(err, &posErr) {
		t.Errorf("AddStop(101): got %v, want InvalidPositionError", err)
	}
	if err := g.AddStop(-1, "#ffffff"); !errors.As(err, &posErr) {
		t.Errorf("AddStop(-1): got %v, want InvalidPositionError", err)
	}

	var colorErr *InvalidColorError
	if err := g.AddStop(50, "ab"); !errors.As(err, &colorErr) {
		t.Errorf("AddStop(50, \"ab\"): got %v, want InvalidColorError", err)
	}

	var dupErr *DuplicatePositionError
	if err := g.AddStop(22, "#ffffff"); !errors.As(err, &dupErr) {
		t.Errorf("AddStop(22) twice: got %v, want DuplicatePositionError", err)
	}

	if n := len(g.Stops()); n != 3 {
		t.Errorf("failed AddStop calls changed the map: %d stops", n)
	}
}

func TestGradientMap_AppliesTo(t *testing.T) {
	sprite := Filter{Pattern: regexp.MustCompile(`^hero`), Scope: MatchSprite}
	frame := Filter{Pattern: regexp.MustCompile(`-idle$`), Scope: MatchSubimage}

	tests := []struct {
		name        string
		filters     []Filter
		spriteName  string
		frameName   string
		wantSprite  bool
		wantApplies bool
	}{
		{"no filters", nil, "villain", "walk-0", true, true},
		{"sprite match", []Filter{sprite}, "hero-red", "walk-0", true, true},
		{"sprite miss", []Filter{sprite}, "villain", "walk-0", false, false},
		{"frame match", []Filter{frame}, "villain", "walk-idle", true, true},
		{"frame miss", []Filter{frame}, "villain", "walk-0", true, false},
		{"either", []Filter{sprite, frame}, "villain", "walk-idle", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GradientMap{Name: "g", Filters: tt.filters}
			if got := g.AppliesToSprite(tt.spriteName); got != tt.wantSprite {
				t.Errorf("AppliesToSprite: got %v, want %v", got, tt.wantSprite)
			}
			if got := g.AppliesTo(tt.spriteName, tt.frameName); got != tt.wantApplies {
				t.Errorf("AppliesTo: got %v, want %v", got, tt.wantApplies)
			}
		})
	}
}

func TestFrame_ApplyGradient(t *testing.T) {
	g := NewGradientMap("red")
	if err := g.AddStop(0, "000000"); err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}
	if err := g.AddStop(100, "ff0000"); err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}

	f := createTransparentFrame(4, 1)
	f.SetPixel(0, 0, Pixel{R: 255, G: 255, B: 255, A: 255})
	f.SetPixel(1, 0, Pixel{R: 51, G: 51, B: 51, A: 128})
	f.SetPixel(2, 0, Pixel{R: 0, G: 255, B: 0, A: 255})
	f.SetPixel(3, 0, Pixel{R: 10, G: 10, B: 10, A: 0})

	f.ApplyGradient(g)

	tests := []struct {
		x    int
		want Pixel
	}{
		{0, Pixel{R: 255, A: 255}}, // gray 255 -> position 100
		{1, Pixel{R: 51, A: 128}},  // gray 51 -> position 20, alpha kept
		{2, Pixel{R: 181, A: 255}}, // luminance 182.376 -> position 71
		{3, Pixel{R: 10, G: 10, B: 10, A: 0}},
	}
	for _, tt := range tests {
		if got := f.Pixel(tt.x, 0); got != tt.want {
			t.Errorf("Pixel(%d,0): got %+v, want %+v", tt.x, got, tt.want)
		}
	}
}

func TestFrame_ApplyGradient16(t *testing.T) {
	g := NewGradientMap("blue")
	if err := g.AddStop(0, "000000"); err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}
	if err := g.AddStop(100, "0000ff"); err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}

	f := NewFrame(image.NewNRGBA64(image.Rect(0, 0, 1, 1)))
	f.SetPixel(0, 0, Pixel{R: 0xffff, G: 0xffff, B: 0xffff, A: 0x8000})
	f.ApplyGradient(g)

	if got, want := f.Pixel(0, 0), (Pixel{B: 0xffff, A: 0x8000}); got != want {
		t.Errorf("Pixel(0,0): got %+v, want %+v", got, want)
	}
}
