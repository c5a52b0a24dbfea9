// Package exif pulls embedded GPS metadata out of image files.
package exif

import (
	"fmt"
	"io"
	"os"

	"github.com/akosourov/photomap/internal/geo"

	"github.com/rwcarlsen/goexif/exif"
)

// Status classifies the outcome of metadata extraction for one file.
type Status int

const (
	StatusOK Status = iota
	StatusNoMetadata
	StatusUnreadable
)

// String returns a short status label for logs and summaries.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoMetadata:
		return "no-metadata"
	case StatusUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// ImageRecord is the per-file extraction result. Raw is set only when Status
// is StatusOK; Reason explains the other two.
type ImageRecord struct {
	Path   string
	Reason string
	Raw    *geo.RawMetadata
	Status Status
}

// Extract reads GPS metadata from the image at path. It never returns an
// error: failures are reported through the record status so a batch can
// continue past broken files.
func Extract(path string) ImageRecord {
	f, err := os.Open(path)
	if err != nil {
		return ImageRecord{Path: path, Status: StatusUnreadable, Reason: err.Error()}
	}
	defer func() { _ = f.Close() }()

	x, err := decode(f)
	if err != nil {
		return ImageRecord{Path: path, Status: StatusNoMetadata, Reason: err.Error()}
	}

	raw := &geo.RawMetadata{}

	var ok bool
	raw.Latitude, raw.LatitudeRef, ok = dmsTag(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if !ok {
		return ImageRecord{Path: path, Status: StatusNoMetadata, Reason: "no GPS latitude tag"}
	}
	raw.Longitude, raw.LongitudeRef, ok = dmsTag(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !ok {
		return ImageRecord{Path: path, Status: StatusNoMetadata, Reason: "no GPS longitude tag"}
	}

	if tag, err := x.Get(exif.GPSAltitude); err == nil {
		if num, den, err := tag.Rat2(0); err == nil {
			raw.Altitude = &geo.Rational{Num: num, Den: den}
			if refTag, err := x.Get(exif.GPSAltitudeRef); err == nil {
				if ref, err := refTag.Int(0); err == nil && ref == 1 {
					raw.BelowSea = true
				}
			}
		}
	}

	if ts, err := x.DateTime(); err == nil {
		raw.Timestamp = ts
	}

	return ImageRecord{Path: path, Status: StatusOK, Raw: raw}
}

// decode wraps exif.Decode; goexif can panic on truncated IFD structures and
// a broken file must not take down the whole batch.
func decode(r io.Reader) (x *exif.Exif, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("exif decode: %v", p)
		}
	}()

	return exif.Decode(r)
}

// dmsTag reads a sexagesimal tag and its hemisphere reference. The bool is
// false when the value tag is absent entirely; a present but short or
// non-rational value comes back truncated for the normalizer to reject.
func dmsTag(x *exif.Exif, valName, refName exif.FieldName) (geo.DMS, string, bool) {
	tag, err := x.Get(valName)
	if err != nil {
		return nil, "", false
	}

	n := int(tag.Count)
	if n > 3 {
		n = 3
	}

	dms := make(geo.DMS, 0, n)
	for i := 0; i < n; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			break
		}
		dms = append(dms, geo.Rational{Num: num, Den: den})
	}

	ref := ""
	if refTag, err := x.Get(refName); err == nil {
		if s, err := refTag.StringVal(); err == nil {
			ref = s
		}
	}

	return dms, ref, true
}
