// Package phototest builds JPEG fixtures carrying an EXIF block.
package phototest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

var le = binary.LittleEndian

// TIFF field types
const (
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
)

// EXIF tag ids
const (
	tagImageDescription = 0x010E
	tagMake             = 0x010F
	tagExifIFDPointer   = 0x8769
	tagExposureTime     = 0x829A
	tagFNumber          = 0x829D
	tagISOSpeedRatings  = 0x8827
	tagUserComment      = 0x9286
)

// EXIF lists the tags written into a fixture. Zero values are omitted.
type EXIF struct {
	FNumber      [2]uint32
	ExposureTime [2]uint32
	ISO          uint16
	Make         string
	Description  string
	UserComment  []byte
}

// Standard returns F2.8, 1/250 s, ISO 100.
func Standard() *EXIF {
	return &EXIF{
		FNumber:      [2]uint32{28, 10},
		ExposureTime: [2]uint32{1, 250},
		ISO:          100,
		Make:         "FUJIFILM",
	}
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func ascii(s string) entry {
	b := append([]byte(s), 0)
	return entry{typ: typeASCII, count: uint32(len(b)), data: b}
}

func rational(v [2]uint32) entry {
	b := make([]byte, 8)
	le.PutUint32(b, v[0])
	le.PutUint32(b[4:], v[1])
	return entry{typ: typeRational, count: 1, data: b}
}

func short(v uint16) entry {
	b := make([]byte, 2)
	le.PutUint16(b, v)
	return entry{typ: typeShort, count: 1, data: b}
}

func long(v uint32) entry {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return entry{typ: typeLong, count: 1, data: b}
}

func with(tag uint16, e entry) entry {
	e.tag = tag
	return e
}

// encodeIFD lays out a directory at offset start, followed by its data area.
func encodeIFD(entries []entry, start uint32) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	dirLen := uint32(2 + 12*len(entries) + 4)
	dataOff := start + dirLen

	var dir, data bytes.Buffer
	_ = binary.Write(&dir, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&dir, le, e.tag)
		_ = binary.Write(&dir, le, e.typ)
		_ = binary.Write(&dir, le, e.count)
		if len(e.data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.data)
			dir.Write(v)
			continue
		}
		_ = binary.Write(&dir, le, dataOff+uint32(data.Len()))
		data.Write(e.data)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	_ = binary.Write(&dir, le, uint32(0))

	return append(dir.Bytes(), data.Bytes()...)
}

// TIFF encodes the EXIF block as a little-endian TIFF structure.
func (e *EXIF) TIFF() []byte {
	var exifEntries []entry
	if e.FNumber != [2]uint32{} {
		exifEntries = append(exifEntries, with(tagFNumber, rational(e.FNumber)))
	}
	if e.ExposureTime != [2]uint32{} {
		exifEntries = append(exifEntries, with(tagExposureTime, rational(e.ExposureTime)))
	}
	if e.ISO != 0 {
		exifEntries = append(exifEntries, with(tagISOSpeedRatings, short(e.ISO)))
	}
	if len(e.UserComment) > 0 {
		exifEntries = append(exifEntries, entry{tag: tagUserComment, typ: typeUndefined, count: uint32(len(e.UserComment)), data: e.UserComment})
	}

	var ifd0 []entry
	if e.Make != "" {
		ifd0 = append(ifd0, with(tagMake, ascii(e.Make)))
	}
	if e.Description != "" {
		ifd0 = append(ifd0, with(tagImageDescription, ascii(e.Description)))
	}

	header := []byte{'I', 'I', 0x2A, 0x00, 8, 0, 0, 0}
	if len(exifEntries) == 0 {
		return append(header, encodeIFD(ifd0, 8)...)
	}

	// The pointer's value does not change the directory length.
	probe := encodeIFD(append(append([]entry(nil), ifd0...), with(tagExifIFDPointer, long(0))), 8)
	exifOff := uint32(8 + len(probe))
	dir0 := encodeIFD(append(ifd0, with(tagExifIFDPointer, long(exifOff))), 8)

	out := append(header, dir0...)
	return append(out, encodeIFD(exifEntries, exifOff)...)
}

// JPEG encodes a w×h JPEG. When x is non-nil an APP1 EXIF segment is
// inserted right after the start-of-image marker.
func JPEG(t testing.TB, w, h int, x *EXIF) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for i := 0; i < w; i++ {
			img.Set(i, y, color.RGBA{R: uint8(i), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	encoded := buf.Bytes()
	if x == nil {
		return encoded
	}

	payload := append([]byte("Exif\x00\x00"), x.TIFF()...)
	app1 := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(app1[2:], uint16(len(payload)+2))
	app1 = append(app1, payload...)

	out := append([]byte(nil), encoded[:2]...)
	out = append(out, app1...)
	return append(out, encoded[2:]...)
}

// WriteJPEG writes a fixture to dir/name and returns its path.
func WriteJPEG(t testing.TB, dir, name string, w, h int, x *EXIF) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, JPEG(t, w, h, x), 0o644))
	return path
}
