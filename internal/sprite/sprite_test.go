package sprite

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ironsheep/sprite-tools/internal/imaging"
)

// writeFrame writes a transparent width x height PNG with an opaque red
// rectangle covering the inclusive box fg.
func writeFrame(t *testing.T, dir, name string, width, height int, fg imaging.BoundingBox) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := fg.Top; y <= fg.Bottom; y++ {
		for x := fg.Left; x <= fg.Right; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 0, 0, 255})
		}
	}
	return writeImage(t, dir, name, img)
}

func box(left, top, right, bottom int) imaging.BoundingBox {
	return imaging.BoundingBox{Left: left, Top: top, Right: right, Bottom: bottom}
}

func writeImage(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
	return path
}

func loadFrame(t *testing.T, path string) *imaging.Frame {
	t.Helper()
	f, err := imaging.LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame(%s) failed: %v", path, err)
	}
	return f
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "b.png", 8, 6, box(1, 1, 2, 2))
	writeFrame(t, dir, "a.png", 8, 6, box(3, 3, 4, 4))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFrame(t, filepath.Join(dir, "child"), "c.png", 2, 2, box(0, 0, 0, 0))

	s, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Width() != 8 || s.Height() != 6 {
		t.Errorf("size: got %dx%d, want 8x6", s.Width(), s.Height())
	}
	want := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}
	if diff := cmp.Diff(want, s.Paths()); diff != "" {
		t.Errorf("Paths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, s.FrameNames()); diff != "" {
		t.Errorf("FrameNames mismatch (-want +got):\n%s", diff)
	}
	if s.Name() != filepath.Base(dir) {
		t.Errorf("Name: got %s, want %s", s.Name(), filepath.Base(dir))
	}
}

func TestNew_Invalid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatal(err)
	}

	var invalidDir *InvalidDirectoryError
	if _, err := New(filepath.Join(dir, "missing"), Options{}); !errors.As(err, &invalidDir) {
		t.Errorf("missing dir: got %v, want InvalidDirectoryError", err)
	}
	if _, err := New(file, Options{}); !errors.As(err, &invalidDir) {
		t.Errorf("file: got %v, want InvalidDirectoryError", err)
	}

	var noSubimages *NoSubimagesFoundError
	if _, err := New(empty, Options{}); !errors.As(err, &noSubimages) {
		t.Errorf("empty dir: got %v, want NoSubimagesFoundError", err)
	}
}

func TestNew_SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "a.png", 8, 8, box(1, 1, 2, 2))
	writeFrame(t, dir, "b.png", 8, 9, box(1, 1, 2, 2))

	_, err := New(dir, Options{})
	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("New: got %v, want SizeMismatchError", err)
	}
	if mismatch.ActualH != 9 || mismatch.ExpectedH != 8 {
		t.Errorf("mismatch heights: got actual %d expected %d", mismatch.ActualH, mismatch.ExpectedH)
	}
	if !IsValidation(err) {
		t.Error("IsValidation: got false for a size mismatch")
	}

	s, err := New(dir, Options{AllowSizeMismatch: true})
	if err != nil {
		t.Fatalf("New with AllowSizeMismatch failed: %v", err)
	}
	if len(s.Paths()) != 2 {
		t.Errorf("frame count: got %d, want 2", len(s.Paths()))
	}
}

func TestSprite_Crop_UnionBox(t *testing.T) {
	dir := t.TempDir()
	a := writeFrame(t, dir, "a.png", 10, 10, box(2, 2, 4, 4))
	b := writeFrame(t, dir, "b.png", 10, 10, box(5, 5, 7, 7))

	s, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Crop(context.Background(), 1); err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if s.Width() != 8 || s.Height() != 8 {
		t.Errorf("sprite size: got %dx%d, want 8x8", s.Width(), s.Height())
	}

	tests := []struct {
		path string
		want imaging.BoundingBox
	}{
		{a, box(1, 1, 3, 3)},
		{b, box(4, 4, 6, 6)},
	}
	for _, tt := range tests {
		f := loadFrame(t, tt.path)
		if f.Width() != 8 || f.Height() != 8 {
			t.Errorf("%s: got %dx%d, want 8x8", filepath.Base(tt.path), f.Width(), f.Height())
		}
		if got := f.ForegroundBox(); got != tt.want {
			t.Errorf("%s foreground: got %v, want %v", filepath.Base(tt.path), got, tt.want)
		}
	}
}

func TestSprite_Crop_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "a.png", 12, 9, box(3, 2, 5, 4))
	writeFrame(t, dir, "b.png", 12, 9, box(6, 3, 8, 6))

	crop := func() []byte {
		s, err := New(dir, Options{})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, err := s.Crop(context.Background(), DefaultPadding); err != nil {
			t.Fatalf("Crop failed: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "b.png"))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	once := crop()
	twice := crop()
	if string(once) != string(twice) {
		t.Error("cropping twice changed the file")
	}
}

func TestSprite_Crop_SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFrame(t, dir, "a.png", 10, 10, box(2, 2, 4, 4))
	b := writeFrame(t, dir, "b.png", 6, 12, box(1, 1, 1, 1))

	s, err := New(dir, Options{AllowSizeMismatch: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Crop(context.Background(), 0); err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if f := loadFrame(t, a); f.Width() != 3 || f.Height() != 3 {
		t.Errorf("a.png: got %dx%d, want 3x3", f.Width(), f.Height())
	}
	if f := loadFrame(t, b); f.Width() != 1 || f.Height() != 1 {
		t.Errorf("b.png: got %dx%d, want 1x1", f.Width(), f.Height())
	}
}

func TestSprite_Crop_NegativePadding(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "a.png", 4, 4, box(1, 1, 1, 1))

	s, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Crop(context.Background(), -1); err == nil {
		t.Error("Crop should reject negative padding")
	}
}

func TestSprite_Bleed(t *testing.T) {
	dir := t.TempDir()
	path := writeFrame(t, dir, "a.png", 5, 5, box(2, 2, 2, 2))

	s, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Bleed(context.Background()); err != nil {
		t.Fatalf("Bleed failed: %v", err)
	}
	f := loadFrame(t, path)
	if got, want := f.Pixel(1, 1), (imaging.Pixel{R: 255, A: 6}); got != want {
		t.Errorf("Pixel(1,1): got %+v, want %+v", got, want)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	again, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := again.Bleed(context.Background()); err != nil {
		t.Fatalf("second Bleed failed: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("bleeding twice changed the file")
	}
}

func TestSprite_Bleed_AfterOpaqueCrop(t *testing.T) {
	dir := t.TempDir()
	path := writeFrame(t, dir, "a.png", 10, 10, box(2, 2, 5, 5))

	s, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Crop(context.Background(), 0); err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if f := loadFrame(t, path); !f.HasAlpha() {
		t.Fatal("cropped frame lost its alpha channel")
	}

	reloaded, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := reloaded.Bleed(context.Background()); err != nil {
		t.Errorf("Bleed after crop failed: %v", err)
	}
}

func TestSprite_Bleed_NoAlpha(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "gray.png", image.NewGray(image.Rect(0, 0, 3, 3)))

	s, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = s.Bleed(context.Background())
	var noAlpha *NoAlphaChannelError
	if !errors.As(err, &noAlpha) {
		t.Fatalf("Bleed: got %v, want NoAlphaChannelError", err)
	}
	if !IsValidation(err) {
		t.Error("IsValidation: got false for a missing alpha channel")
	}
}

func TestSprite_Checksums(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "a.png", 4, 4, box(1, 1, 1, 1))
	writeFrame(t, dir, "b.png", 4, 4, box(1, 1, 1, 1))
	writeFrame(t, dir, "c.png", 4, 4, box(2, 2, 2, 2))

	s, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sums, err := s.Checksums(context.Background())
	if err != nil {
		t.Fatalf("Checksums failed: %v", err)
	}
	if len(sums) != 3 {
		t.Fatalf("Checksums: got %d, want 3", len(sums))
	}
	if sums[0] != sums[1] {
		t.Error("identical frames have different checksums")
	}
	if sums[0] == sums[2] {
		t.Error("different frames share a checksum")
	}
}

func TestSprite_CopyMoveDelete(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "hero")
	writeFrame(t, src, "a.png", 4, 4, box(1, 1, 1, 1))

	s, err := New(src, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Copy replaces whatever was at the destination.
	copyDir := filepath.Join(root, "copy")
	writeFrame(t, copyDir, "stale.png", 4, 4, box(0, 0, 0, 0))
	c, err := s.Copy(copyDir)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(copyDir, "a.png")}, c.Paths()); diff != "" {
		t.Errorf("copy Paths mismatch (-want +got):\n%s", diff)
	}

	// Move keeps unrelated destination files.
	moveDir := filepath.Join(root, "out", "hero")
	keep := writeFrame(t, moveDir, "keep.png", 4, 4, box(0, 0, 0, 0))
	if err := s.Move(moveDir); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if s.Root() != moveDir {
		t.Errorf("Root after Move: got %s, want %s", s.Root(), moveDir)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("Move removed an unrelated destination file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(src, "a.png")); !os.IsNotExist(err) {
		t.Errorf("source frame still present after Move: %v", err)
	}
	if _, err := s.Checksums(context.Background()); err != nil {
		t.Errorf("Checksums after Move failed: %v", err)
	}

	if err := c.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(copyDir); !os.IsNotExist(err) {
		t.Errorf("copy still present after Delete: %v", err)
	}
	var noSubimages *NoSubimagesFoundError
	if _, err := c.Crop(context.Background(), 1); !errors.As(err, &noSubimages) {
		t.Errorf("Crop after Delete: got %v, want NoSubimagesFoundError", err)
	}
}
