// Package kml builds placemarks and serializes them into KML 2.2 documents.
package kml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akosourov/photomap/internal/geo"

	"github.com/tdewolff/minify/v2"
	xmlmin "github.com/tdewolff/minify/v2/xml"
)

// Namespace is the OGC KML 2.2 schema namespace.
const Namespace = "http://www.opengis.net/kml/2.2"

// ErrNotWritable marks destination paths the document could not be saved to.
var ErrNotWritable = errors.New("destination not writable")

// Point holds a KML point geometry. Coordinates is the
// "longitude,latitude[,altitude]" string mandated by the schema.
type Point struct {
	Coordinates string `xml:"coordinates"`
}

// Placemark is a single named point of interest.
type Placemark struct {
	XMLName     xml.Name `xml:"Placemark"`
	Name        string   `xml:"name"`
	Description string   `xml:"description,omitempty"`
	Point       Point    `xml:"Point"`
}

// Document is the KML document body.
type Document struct {
	Name       string      `xml:"name"`
	Placemarks []Placemark `xml:"Placemark"`
}

// KML is the document root.
type KML struct {
	XMLName  xml.Name `xml:"kml"`
	Xmlns    string   `xml:"xmlns,attr"`
	Document Document `xml:"Document"`
}

// NewPlacemark builds a placemark for one geotagged image. fileName is the
// image file name, relPath its path relative to the scan root, and thumbRef
// an optional image reference included in the description. The placemark
// name is the base file name with the extension stripped.
func NewPlacemark(coord geo.Coordinate, fileName, relPath, thumbRef string) Placemark {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	var desc []string
	if !coord.Timestamp.IsZero() {
		desc = append(desc, coord.Timestamp.Format(time.RFC3339))
	}
	if relPath != "" {
		desc = append(desc, filepath.ToSlash(relPath))
	}
	if thumbRef != "" {
		desc = append(desc, fmt.Sprintf("<img src=%q/>", thumbRef))
	}

	return Placemark{
		Name:        name,
		Description: strings.Join(desc, "\n"),
		Point:       Point{Coordinates: FormatCoordinates(coord)},
	}
}

// FormatCoordinates renders "lon,lat[,alt]" with longitude first, as the KML
// schema requires. Shortest float formatting keeps output stable across runs.
func FormatCoordinates(c geo.Coordinate) string {
	s := strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
	if c.Altitude != nil {
		s += "," + strconv.FormatFloat(*c.Altitude, 'f', -1, 64)
	}
	return s
}

// ParseCoordinates is the inverse of FormatCoordinates.
func ParseCoordinates(s string) (geo.Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 || len(parts) > 3 {
		return geo.Coordinate{}, fmt.Errorf("coordinates %q: want 2 or 3 components", s)
	}

	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("longitude %q: %w", parts[0], err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("latitude %q: %w", parts[1], err)
	}

	coord := geo.Coordinate{Lat: lat, Lon: lon}
	if len(parts) == 3 {
		alt, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return geo.Coordinate{}, fmt.Errorf("altitude %q: %w", parts[2], err)
		}
		coord.Altitude = &alt
	}

	return coord, nil
}

// Marshal renders a complete document. With compact set the XML is minified;
// otherwise it is indented for readability.
func Marshal(docName string, placemarks []Placemark, compact bool) ([]byte, error) {
	k := KML{
		Xmlns: Namespace,
		Document: Document{
			Name:       docName,
			Placemarks: placemarks,
		},
	}

	body, err := xml.MarshalIndent(k, "", "  ")
	if err != nil {
		return nil, err
	}

	out := append([]byte(xml.Header), body...)
	out = append(out, '\n')

	if !compact {
		return out, nil
	}

	m := minify.New()
	m.AddFunc("text/xml", xmlmin.Minify)
	return m.Bytes("text/xml", out)
}

// WriteFile serializes the placemarks and writes the document to path.
func WriteFile(path, docName string, placemarks []Placemark, compact bool) error {
	data, err := Marshal(docName, placemarks, compact)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, werr)
	}
	if cerr != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, cerr)
	}

	return nil
}

// Parse decodes a KML document, used to verify written output round-trips.
func Parse(r io.Reader) (*KML, error) {
	var k KML
	if err := xml.NewDecoder(r).Decode(&k); err != nil {
		return nil, err
	}
	return &k, nil
}
