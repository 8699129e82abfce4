package survey

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// UnnamedFeature is the placeholder name assigned to placemarks without a
// <name> element.
const UnnamedFeature = "unnamed"

// placemark is the subset of a KML <Placemark> the parser cares about.
// Exactly one of the geometry members is expected; anything else (e.g.
// MultiGeometry) is skipped.
type placemark struct {
	Name    string `xml:"name"`
	Polygon *struct {
		Coordinates string `xml:"outerBoundaryIs>LinearRing>coordinates"`
	} `xml:"Polygon"`
	Point *struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
	LineString *struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"LineString"`
}

// ParseKML extracts shapes, points, and routes from KML text, preserving
// document order. Placemarks are found wherever they appear (Document,
// Folder, nested Folders).
//
// A placemark with a missing, empty, or malformed coordinate block is skipped;
// the rest of the document still parses. Only a document-level XML syntax
// error aborts the parse.
func ParseKML(text string) (*Document, error) {
	doc := &Document{}
	dec := xml.NewDecoder(strings.NewReader(text))

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing KML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Placemark" {
			continue
		}

		var pm placemark
		if err := dec.DecodeElement(&pm, &start); err != nil {
			return nil, fmt.Errorf("parsing KML placemark: %w", err)
		}
		addPlacemark(doc, &pm)
	}

	return doc, nil
}

// addPlacemark classifies a placemark by its geometry and appends it to the
// matching collection. Classification mirrors load order in the exports we
// consume: Polygon, then Point, then LineString.
func addPlacemark(doc *Document, pm *placemark) {
	name := strings.TrimSpace(pm.Name)
	if name == "" {
		name = UnnamedFeature
	}

	switch {
	case pm.Polygon != nil:
		coords, err := parseCoordinateList(pm.Polygon.Coordinates)
		if err != nil || len(coords) == 0 {
			return
		}
		doc.Shapes = append(doc.Shapes, Shape{
			Name:   name,
			Coords: orb.Ring(coords),
			Center: ringCenter(coords),
		})

	case pm.Point != nil:
		pt, err := parseCoordinate(strings.TrimSpace(pm.Point.Coordinates))
		if err != nil {
			return
		}
		doc.Points = append(doc.Points, Point{Name: name, Lat: pt[0], Lng: pt[1]})

	case pm.LineString != nil:
		coords, err := parseCoordinateList(pm.LineString.Coordinates)
		if err != nil || len(coords) == 0 {
			return
		}
		doc.Routes = append(doc.Routes, Route{Name: name, Coords: orb.LineString(coords)})
	}
}

// parseCoordinateList parses a whitespace-separated KML coordinate block of
// lon,lat[,alt] tuples into [lat, lng] pairs.
func parseCoordinateList(block string) ([]orb.Point, error) {
	var coords []orb.Point
	for _, token := range strings.Fields(block) {
		pt, err := parseCoordinate(token)
		if err != nil {
			return nil, err
		}
		coords = append(coords, pt)
	}
	return coords, nil
}

// parseCoordinate parses a single lon,lat[,alt] tuple, swapping to [lat, lng].
func parseCoordinate(token string) (orb.Point, error) {
	parts := strings.Split(token, ",")
	if len(parts) < 2 {
		return orb.Point{}, fmt.Errorf("coordinate %q: too few components", token)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("coordinate %q: %w", token, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("coordinate %q: %w", token, err)
	}
	return orb.Point{lat, lng}, nil
}

// ringCenter returns the arithmetic mean of a ring's latitudes and longitudes,
// rounded to 6 decimal places. The center is always derived from the coords,
// never carried over from a previous inventory.
func ringCenter(coords []orb.Point) [2]float64 {
	var sumLat, sumLng float64
	for _, c := range coords {
		sumLat += c[0]
		sumLng += c[1]
	}
	n := float64(len(coords))
	return [2]float64{round6(sumLat / n), round6(sumLng / n)}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
