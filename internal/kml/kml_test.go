package kml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akosourov/photomap/internal/geo"
)

func TestNewPlacemark(t *testing.T) {
	ts := time.Date(2021, 7, 4, 12, 0, 0, 0, time.UTC)
	coord := geo.Coordinate{Lat: 40.0, Lon: -74.0, Timestamp: ts}

	pm := NewPlacemark(coord, "central_park.jpg", "trips/central_park.jpg", "")

	assert.Equal(t, "central_park", pm.Name)
	assert.Contains(t, pm.Description, "2021-07-04T12:00:00Z")
	assert.Contains(t, pm.Description, "trips/central_park.jpg")
	assert.Equal(t, "-74,40", pm.Point.Coordinates)
}

func TestNewPlacemark_ThumbnailRef(t *testing.T) {
	pm := NewPlacemark(geo.Coordinate{Lat: 1, Lon: 2}, "a.jpg", "a.jpg", "photos_thumbs/a.webp")
	assert.Contains(t, pm.Description, `<img src="photos_thumbs/a.webp"/>`)
}

func TestFormatCoordinates_Altitude(t *testing.T) {
	alt := 123.4
	c := geo.Coordinate{Lat: 51.5, Lon: -0.1, Altitude: &alt}
	assert.Equal(t, "-0.1,51.5,123.4", FormatCoordinates(c))
}

func TestParseCoordinates(t *testing.T) {
	c, err := ParseCoordinates("-0.1,51.5,123.4")
	require.NoError(t, err)
	assert.Equal(t, 51.5, c.Lat)
	assert.Equal(t, -0.1, c.Lon)
	require.NotNil(t, c.Altitude)
	assert.Equal(t, 123.4, *c.Altitude)

	_, err = ParseCoordinates("1")
	assert.Error(t, err)
	_, err = ParseCoordinates("a,b")
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	alt := -430.0
	placemarks := []Placemark{
		NewPlacemark(geo.Coordinate{Lat: 40.712776, Lon: -74.005974}, "nyc.jpg", "nyc.jpg", ""),
		NewPlacemark(geo.Coordinate{Lat: 31.5, Lon: 35.466667, Altitude: &alt}, "deadsea.jpg", "il/deadsea.jpg", ""),
	}

	data, err := Marshal("Trip (Geotagged Images)", placemarks, false)
	require.NoError(t, err)

	parsed, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "Trip (Geotagged Images)", parsed.Document.Name)
	require.Len(t, parsed.Document.Placemarks, 2)

	c, err := ParseCoordinates(parsed.Document.Placemarks[0].Point.Coordinates)
	require.NoError(t, err)
	assert.InDelta(t, 40.712776, c.Lat, 1e-6)
	assert.InDelta(t, -74.005974, c.Lon, 1e-6)

	c, err = ParseCoordinates(parsed.Document.Placemarks[1].Point.Coordinates)
	require.NoError(t, err)
	assert.InDelta(t, 31.5, c.Lat, 1e-6)
	require.NotNil(t, c.Altitude)
	assert.InDelta(t, -430.0, *c.Altitude, 1e-6)
}

func TestMarshal_EscapesMarkup(t *testing.T) {
	pm := Placemark{
		Name:        `<oops> & "quotes"`,
		Description: "a < b & c > d",
		Point:       Point{Coordinates: "1,2"},
	}

	data, err := Marshal("docs & markup", []Placemark{pm}, false)
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, "<oops>")
	assert.Contains(t, s, "&lt;oops&gt;")

	parsed, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "docs & markup", parsed.Document.Name)
	require.Len(t, parsed.Document.Placemarks, 1)
	assert.Equal(t, pm.Name, parsed.Document.Placemarks[0].Name)
	assert.Equal(t, pm.Description, parsed.Document.Placemarks[0].Description)
}

func TestMarshal_Compact(t *testing.T) {
	placemarks := []Placemark{
		NewPlacemark(geo.Coordinate{Lat: 40, Lon: -74}, "a.jpg", "a.jpg", ""),
		NewPlacemark(geo.Coordinate{Lat: 51.5, Lon: -0.1}, "b.jpg", "b.jpg", ""),
	}

	pretty, err := Marshal("doc", placemarks, false)
	require.NoError(t, err)
	compact, err := Marshal("doc", placemarks, true)
	require.NoError(t, err)

	assert.Less(t, len(compact), len(pretty))

	parsed, err := Parse(bytes.NewReader(compact))
	require.NoError(t, err)
	assert.Len(t, parsed.Document.Placemarks, 2)
}

func TestMarshal_EmptyDocument(t *testing.T) {
	data, err := Marshal("empty", nil, false)
	require.NoError(t, err)

	parsed, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "empty", parsed.Document.Name)
	assert.Empty(t, parsed.Document.Placemarks)
	assert.True(t, strings.Contains(string(data), Namespace))
}

func TestWriteFile_BadDestination(t *testing.T) {
	dir := t.TempDir()
	// A directory at the destination path makes os.Create fail.
	err := WriteFile(dir, "doc", nil, false)
	assert.ErrorIs(t, err, ErrNotWritable)
}

func TestWriteFile_CoordinateOrderLonFirst(t *testing.T) {
	pm := NewPlacemark(geo.Coordinate{Lat: 40, Lon: -74}, "a.jpg", "a.jpg", "")
	assert.True(t, strings.HasPrefix(pm.Point.Coordinates, "-74,"))
}
