package geo

import (
	"encoding/binary"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// Geometry columns are stored as little-endian WKB with SRID 4326 semantics.

func toCoords(points []Point) []geom.Coord {
	coords := make([]geom.Coord, len(points))
	for i, p := range points {
		coords[i] = geom.Coord{p.Lon, p.Lat}
	}
	return coords
}

func fromCoords(coords []geom.Coord) []Point {
	points := make([]Point, len(coords))
	for i, c := range coords {
		points[i] = Point{Lon: c.X(), Lat: c.Y()}
	}
	return points
}

func (ls LineString) toGeom() (*geom.LineString, error) {
	return geom.NewLineString(geom.XY).SetCoords(toCoords(ls))
}

func (pg Polygon) toGeom() (*geom.Polygon, error) {
	return geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{toCoords(NewPolygon(pg))})
}

// MarshalLineStringWKB encodes ls; a nil route encodes to nil bytes.
func MarshalLineStringWKB(ls LineString) ([]byte, error) {
	if ls == nil {
		return nil, nil
	}
	g, err := ls.toGeom()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// UnmarshalLineStringWKB decodes a LINESTRING; empty input yields a nil route.
func UnmarshalLineStringWKB(b []byte) (LineString, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return lineStringFrom(g)
}

func marshalPolygonWKB(pg Polygon) ([]byte, error) {
	g, err := pg.toGeom()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

func UnmarshalPolygonWKB(b []byte) (Polygon, error) {
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return polygonFrom(g)
}

// LineStringGeoJSON renders ls as a GeoJSON geometry string.
func LineStringGeoJSON(ls LineString) (string, error) {
	if ls == nil {
		return "", nil
	}
	g, err := ls.toGeom()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func lineStringFrom(g geom.T) (LineString, error) {
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("%w: expected LineString, got %T", ErrInvalidGeometry, g)
	}
	return LineString(fromCoords(ls.Coords())), nil
}

func polygonFrom(g geom.T) (Polygon, error) {
	pg, ok := g.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("%w: expected Polygon, got %T", ErrInvalidGeometry, g)
	}
	if pg.NumLinearRings() == 0 {
		return nil, fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}
	return NewPolygon(fromCoords(pg.LinearRing(0).Coords())), nil
}
