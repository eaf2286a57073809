// Package testimage builds small JPEG fixtures with a synthetic EXIF block
// for tests.
package testimage

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

const (
	tagMake             = 0x010F
	tagExifIFDPointer   = 0x8769
	tagDateTimeOriginal = 0x9003

	typeASCII = 2
	typeLong  = 4
)

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// JPEG encodes img and, when captured is non-empty, embeds it as EXIF
// DateTimeOriginal (e.g. "2020:01:02 10:00:00").
func JPEG(t testing.TB, img image.Image, captured string) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if captured == "" {
		return buf.Bytes()
	}
	return insertAPP1(buf.Bytes(), dateTimeOriginalTIFF(captured))
}

// JPEGWithoutCaptureTime encodes img with an EXIF block that carries a
// camera make but no DateTimeOriginal.
func JPEGWithoutCaptureTime(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return insertAPP1(buf.Bytes(), makeOnlyTIFF("test"))
}

// WriteFile writes data to dir/rel, creating parent directories, and
// returns the full path.
func WriteFile(t testing.TB, dir, rel string, data []byte) string {
	t.Helper()

	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// insertAPP1 places an Exif APP1 segment directly after the SOI marker.
func insertAPP1(jpg, tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)

	seg := make([]byte, 4, 4+len(payload))
	seg[0], seg[1] = 0xFF, 0xE1
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := make([]byte, 0, len(jpg)+len(seg))
	out = append(out, jpg[:2]...)
	out = append(out, seg...)
	out = append(out, jpg[2:]...)
	return out
}

// dateTimeOriginalTIFF lays out a little-endian TIFF block:
//
//	0   header, IFD0 at 8
//	8   IFD0: ExifIFDPointer -> 26
//	26  Exif IFD: DateTimeOriginal -> 44
//	44  NUL-terminated timestamp
func dateTimeOriginalTIFF(captured string) []byte {
	value := append([]byte(captured), 0)

	var b bytes.Buffer
	writeHeader(&b)
	writeIFD(&b, tagExifIFDPointer, typeLong, 1, 26)
	writeIFD(&b, tagDateTimeOriginal, typeASCII, uint32(len(value)), 44)
	b.Write(value)
	return b.Bytes()
}

func makeOnlyTIFF(camera string) []byte {
	value := append([]byte(camera), 0)
	for len(value) <= 4 {
		value = append(value, 0)
	}

	var b bytes.Buffer
	writeHeader(&b)
	writeIFD(&b, tagMake, typeASCII, uint32(len(value)), 26)
	b.Write(value)
	return b.Bytes()
}

func writeHeader(b *bytes.Buffer) {
	b.WriteString("II")
	_ = binary.Write(b, binary.LittleEndian, uint16(42))
	_ = binary.Write(b, binary.LittleEndian, uint32(8))
}

// writeIFD writes a single-entry IFD with no next IFD.
func writeIFD(b *bytes.Buffer, tag, typ uint16, count, value uint32) {
	_ = binary.Write(b, binary.LittleEndian, uint16(1))
	_ = binary.Write(b, binary.LittleEndian, tag)
	_ = binary.Write(b, binary.LittleEndian, typ)
	_ = binary.Write(b, binary.LittleEndian, count)
	_ = binary.Write(b, binary.LittleEndian, value)
	_ = binary.Write(b, binary.LittleEndian, uint32(0))
}

// Gray returns an opaque gray color of the given level.
func Gray(level uint8) color.Color {
	return color.RGBA{R: level, G: level, B: level, A: 0xFF}
}
