// Package geo handles geographic data structures and coordinate conversions.
package geo

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by Normalize for metadata that cannot become a valid
// coordinate.
var (
	ErrOutOfRange        = errors.New("coordinate out of range")
	ErrMalformedMetadata = errors.New("malformed location metadata")
)

// Rational is an unreduced EXIF rational value.
type Rational struct {
	Num int64
	Den int64
}

// Float converts the rational to a float64. A zero denominator falls back to
// the numerator alone, as some cameras write degenerate rationals instead of
// omitting the tag.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return float64(r.Num)
	}
	return float64(r.Num) / float64(r.Den)
}

// DMS is a sexagesimal angle: degrees, minutes, seconds. A valid angle has
// exactly three components.
type DMS []Rational

// RawMetadata is the location payload pulled from an image file before
// normalization. Latitude and Longitude are sexagesimal with hemisphere
// reference letters ("N"/"S" and "E"/"W"). BelowSea negates the altitude.
type RawMetadata struct {
	Timestamp    time.Time
	LatitudeRef  string
	LongitudeRef string
	Latitude     DMS
	Longitude    DMS
	Altitude     *Rational
	BelowSea     bool
}

// Coordinate is a normalized WGS84 position in signed decimal degrees.
type Coordinate struct {
	Timestamp time.Time
	Altitude  *float64
	Lat       float64
	Lon       float64
}

// Normalize converts raw sexagesimal metadata into a validated Coordinate.
// South and West hemisphere references produce negative values. Latitude must
// fall in [-90, 90] and longitude in [-180, 180], both inclusive.
func Normalize(raw RawMetadata) (Coordinate, error) {
	lat, err := dmsToDecimal(raw.Latitude, raw.LatitudeRef)
	if err != nil {
		return Coordinate{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := dmsToDecimal(raw.Longitude, raw.LongitudeRef)
	if err != nil {
		return Coordinate{}, fmt.Errorf("longitude: %w", err)
	}

	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("%w: latitude %g", ErrOutOfRange, lat)
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("%w: longitude %g", ErrOutOfRange, lon)
	}

	coord := Coordinate{
		Lat:       lat,
		Lon:       lon,
		Timestamp: raw.Timestamp,
	}

	if raw.Altitude != nil {
		alt := raw.Altitude.Float()
		if raw.BelowSea {
			alt = -alt
		}
		coord.Altitude = &alt
	}

	return coord, nil
}

func dmsToDecimal(dms DMS, ref string) (float64, error) {
	if len(dms) != 3 {
		return 0, fmt.Errorf("%w: want 3 sexagesimal components, got %d", ErrMalformedMetadata, len(dms))
	}

	deg := dms[0].Float() + dms[1].Float()/60.0 + dms[2].Float()/3600.0

	// Hemisphere reference missing means positive (N/E), matching how most
	// EXIF writers treat the default.
	if ref == "S" || ref == "W" {
		deg = -deg
	}

	return deg, nil
}
