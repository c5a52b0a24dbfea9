// Package testutil builds small image fixtures for tests: raw TIFF files and
// JPEGs carrying a synthetic EXIF GPS block.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"
)

// Rational mirrors an unsigned EXIF rational for fixture building.
type Rational struct {
	Num uint32
	Den uint32
}

// GPSFixture describes the EXIF content written by the fixture helpers.
// Lat/Lon hold the sexagesimal triples verbatim, so tests can also produce
// deliberately short (malformed) values.
type GPSFixture struct {
	LatRef   string // "N" or "S"
	LonRef   string // "E" or "W"
	DateTime string // "2006:01:02 15:04:05" format, empty to omit
	Lat      []Rational
	Lon      []Rational
	Alt      *Rational
	AltRef   byte // 1 = below sea level
}

// DMS builds a degrees/minutes/seconds triple. Seconds are stored with a
// fixed /100 denominator, enough for 1e-4 degree precision in tests.
func DMS(deg, min uint32, sec float64) []Rational {
	return []Rational{{deg, 1}, {min, 1}, {uint32(sec*100 + 0.5), 100}}
}

// WriteGeotagged writes a raw TIFF file carrying the fixture's GPS IFD.
// goexif parses bare TIFF streams, so no raster data is needed.
func WriteGeotagged(t *testing.T, path string, fx GPSFixture) {
	t.Helper()

	if err := os.WriteFile(path, BuildTIFF(fx), 0644); err != nil {
		t.Fatal(err)
	}
}

// WriteGeotaggedJPEG writes a real decodable JPEG with the fixture's EXIF
// block spliced in as an APP1 segment.
func WriteGeotaggedJPEG(t *testing.T, path string, fx GPSFixture, w, h int) {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatal(err)
	}

	exifBlock := BuildTIFF(fx)
	app1 := make([]byte, 0, len(exifBlock)+10)
	app1 = append(app1, 0xFF, 0xE1)
	app1 = binary.BigEndian.AppendUint16(app1, uint16(2+6+len(exifBlock)))
	app1 = append(app1, 'E', 'x', 'i', 'f', 0, 0)
	app1 = append(app1, exifBlock...)

	jpg := buf.Bytes()
	out := make([]byte, 0, len(jpg)+len(app1))
	out = append(out, jpg[:2]...) // SOI
	out = append(out, app1...)
	out = append(out, jpg[2:]...)

	if err := os.WriteFile(path, out, 0644); err != nil {
		t.Fatal(err)
	}
}

// WriteUntagged writes a plain JPEG with no EXIF segment at all.
func WriteUntagged(t *testing.T, path string, w, h int) {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: 0x80, A: 0xFF})
		}
	}
	return img
}

// TIFF field types used below.
const (
	typeByte     = 1
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5
)

type ifdEntry struct {
	payload []byte // data placed past the IFDs; nil when value is inline
	value   [4]byte
	tag     uint16
	typ     uint16
	count   uint32
}

// BuildTIFF assembles a minimal little-endian TIFF: IFD0 with a GPS sub-IFD
// pointer (and optionally DateTime), then the GPS IFD, then the value area.
func BuildTIFF(fx GPSFixture) []byte {
	le := binary.LittleEndian

	rats := func(rs []Rational) []byte {
		buf := make([]byte, 0, len(rs)*8)
		for _, r := range rs {
			buf = le.AppendUint32(buf, r.Num)
			buf = le.AppendUint32(buf, r.Den)
		}
		return buf
	}
	ascii := func(s string) [4]byte {
		var v [4]byte
		copy(v[:], s)
		return v
	}

	gps := []ifdEntry{
		{tag: 0x0001, typ: typeASCII, count: 2, value: ascii(fx.LatRef)},
		{tag: 0x0002, typ: typeRational, count: uint32(len(fx.Lat)), payload: rats(fx.Lat)},
		{tag: 0x0003, typ: typeASCII, count: 2, value: ascii(fx.LonRef)},
		{tag: 0x0004, typ: typeRational, count: uint32(len(fx.Lon)), payload: rats(fx.Lon)},
	}
	if fx.Alt != nil {
		gps = append(gps,
			ifdEntry{tag: 0x0005, typ: typeByte, count: 1, value: [4]byte{fx.AltRef}},
			ifdEntry{tag: 0x0006, typ: typeRational, count: 1, payload: rats([]Rational{*fx.Alt})},
		)
	}

	ifd0Count := 1
	if fx.DateTime != "" {
		ifd0Count = 2
	}
	ifd0Size := 2 + uint32(ifd0Count)*12 + 4
	gpsOff := 8 + ifd0Size
	gpsSize := 2 + uint32(len(gps))*12 + 4
	dataOff := gpsOff + gpsSize

	var data bytes.Buffer
	writeIFD := func(entries []ifdEntry) []byte {
		buf := le.AppendUint16(nil, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, e.tag)
			buf = le.AppendUint16(buf, e.typ)
			buf = le.AppendUint32(buf, e.count)
			if e.payload != nil {
				buf = le.AppendUint32(buf, dataOff+uint32(data.Len()))
				data.Write(e.payload)
			} else {
				buf = append(buf, e.value[:]...)
			}
		}
		return le.AppendUint32(buf, 0) // no next IFD
	}

	gpsIFD := writeIFD(gps)

	ifd0 := []ifdEntry{}
	if fx.DateTime != "" {
		// DateTime tag, NUL-terminated ASCII.
		ifd0 = append(ifd0, ifdEntry{
			tag: 0x0132, typ: typeASCII,
			count:   uint32(len(fx.DateTime) + 1),
			payload: append([]byte(fx.DateTime), 0),
		})
	}
	ifd0 = append(ifd0, ifdEntry{
		tag: 0x8825, typ: typeLong, count: 1,
		value: [4]byte{byte(gpsOff), byte(gpsOff >> 8), byte(gpsOff >> 16), byte(gpsOff >> 24)},
	})
	ifd0IFD := writeIFD(ifd0)

	out := []byte{'I', 'I', 0x2A, 0x00}
	out = le.AppendUint32(out, 8)
	out = append(out, ifd0IFD...)
	out = append(out, gpsIFD...)
	out = append(out, data.Bytes()...)
	return out
}
