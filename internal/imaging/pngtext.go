package imaging

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// vendorSoftware lists lowercase fragments of the PNG Software text of tools
// known to leave opaque white borders around antialiased edges.
var vendorSoftware = []string{"clip studio", "clipstudio", "celsys"}

// ReadSoftware returns the value of the PNG "Software" text chunk, or an empty
// string when the file has none. Only chunks before the image data are read.
func ReadSoftware(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open image")
	}
	defer file.Close()

	r := bufio.NewReader(file)
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return "", errors.Errorf("%q is not a PNG file", path)
	}

	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return "", errors.Wrapf(err, "failed to read chunk header in %q", path)
		}
		length := binary.BigEndian.Uint32(header[:4])
		chunkType := string(header[4:8])

		switch chunkType {
		case "IDAT", "IEND":
			return "", nil
		case "tEXt", "iTXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return "", errors.Wrapf(err, "failed to read %s chunk in %q", chunkType, path)
			}
			if keyword, text, ok := parseTextChunk(chunkType, data); ok && keyword == "Software" {
				return text, nil
			}
			if _, err := r.Discard(4); err != nil {
				return "", errors.Wrapf(err, "failed to skip chunk crc in %q", path)
			}
		default:
			if _, err := r.Discard(int(length) + 4); err != nil {
				return "", errors.Wrapf(err, "failed to skip %s chunk in %q", chunkType, path)
			}
		}
	}
}

// IsVendorSoftware reports whether a Software text value names a tool known
// to inject white borders.
func IsVendorSoftware(software string) bool {
	lower := strings.ToLower(software)
	for _, v := range vendorSoftware {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

func parseTextChunk(chunkType string, data []byte) (keyword, text string, ok bool) {
	keywordEnd := bytes.IndexByte(data, 0)
	if keywordEnd < 0 {
		return "", "", false
	}
	keyword = string(data[:keywordEnd])
	rest := data[keywordEnd+1:]

	if chunkType == "tEXt" {
		return keyword, string(rest), true
	}

	// iTXt: compression flag, compression method, language tag\0, translated keyword\0, text
	if len(rest) < 2 || rest[0] != 0 {
		return keyword, "", false
	}
	rest = rest[2:]
	for i := 0; i < 2; i++ {
		end := bytes.IndexByte(rest, 0)
		if end < 0 {
			return keyword, "", false
		}
		rest = rest[end+1:]
	}
	return keyword, string(rest), true
}
