package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writePNGWithText encodes img and inserts a text chunk right after IHDR.
func writePNGWithText(t *testing.T, dir, name, chunkType string, data []byte) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	raw := buf.Bytes()

	// Signature (8) + IHDR chunk (4 length + 4 type + 13 data + 4 crc).
	ihdrEnd := 8 + 25
	var chunk bytes.Buffer
	binary.Write(&chunk, binary.BigEndian, uint32(len(data)))
	chunk.WriteString(chunkType)
	chunk.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(chunkType))
	crc.Write(data)
	binary.Write(&chunk, binary.BigEndian, crc.Sum32())

	out := append([]byte{}, raw[:ihdrEnd]...)
	out = append(out, chunk.Bytes()...)
	out = append(out, raw[ihdrEnd:]...)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestReadSoftware(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		chunkType string
		data      string
		want      string
	}{
		{"tEXt", "tEXt", "Software\x00CLIP STUDIO PAINT", "CLIP STUDIO PAINT"},
		{"iTXt", "iTXt", "Software\x00\x00\x00en\x00\x00Celsys Studio", "Celsys Studio"},
		{"other keyword", "tEXt", "Comment\x00hello", ""},
		{"compressed iTXt", "iTXt", "Software\x00\x01\x00\x00\x00xx", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePNGWithText(t, dir, tt.name+".png", tt.chunkType, []byte(tt.data))
			got, err := ReadSoftware(path)
			if err != nil {
				t.Fatalf("ReadSoftware failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadSoftware: got %q, want %q", got, tt.want)
			}
			if _, err := LoadFrame(path); err != nil {
				t.Errorf("file with text chunk no longer decodes: %v", err)
			}
		})
	}
}

func TestReadSoftware_NoText(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "plain.png", image.NewNRGBA(image.Rect(0, 0, 2, 2)))

	got, err := ReadSoftware(path)
	if err != nil {
		t.Fatalf("ReadSoftware failed: %v", err)
	}
	if got != "" {
		t.Errorf("ReadSoftware: got %q, want empty", got)
	}
}

func TestReadSoftware_NotPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.png")
	if err := os.WriteFile(path, []byte("GIF89a........"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := ReadSoftware(path); err == nil {
		t.Error("ReadSoftware should fail for a non-PNG file")
	}
}

func TestIsVendorSoftware(t *testing.T) {
	tests := []struct {
		software string
		want     bool
	}{
		{"CLIP STUDIO PAINT", true},
		{"ClipStudio 2.0", true},
		{"CELSYS", true},
		{"Adobe Photoshop", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsVendorSoftware(tt.software); got != tt.want {
			t.Errorf("IsVendorSoftware(%q): got %v, want %v", tt.software, got, tt.want)
		}
	}
}
