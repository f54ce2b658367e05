package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters used by every distance in this package.
const EarthRadius = 6371000

var (
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Point is a WGS84 position in degrees.
type Point struct {
	Lon float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Validate reports ErrInvalidCoordinate for non-finite or out-of-range values.
func (p Point) Validate() error {
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return fmt.Errorf("%w: non-finite point (%v, %v)", ErrInvalidCoordinate, p.Lon, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, p.Lat)
	}
	return nil
}

// Polygon is a closed ring: the first point equals the last.
type Polygon []Point

// NewPolygon returns the ring closed on its first point.
func NewPolygon(points []Point) Polygon {
	ring := make(Polygon, len(points), len(points)+1)
	copy(ring, points)
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// Validate checks every vertex and requires at least three distinct points.
func (pg Polygon) Validate() error {
	distinct := make(map[Point]struct{}, len(pg))
	for _, p := range pg {
		if err := p.Validate(); err != nil {
			return err
		}
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return fmt.Errorf("%w: polygon has %d distinct points, need 3", ErrInvalidGeometry, len(distinct))
	}
	return nil
}

// edges yields the ring segments, closing it implicitly if the caller built it by hand.
func (pg Polygon) edges() [][2]Point {
	n := len(pg)
	if n < 2 {
		return nil
	}
	out := make([][2]Point, 0, n)
	for i := 0; i < n-1; i++ {
		out = append(out, [2]Point{pg[i], pg[i+1]})
	}
	if pg[0] != pg[n-1] {
		out = append(out, [2]Point{pg[n-1], pg[0]})
	}
	return out
}

// LineString is an ordered path, one per order.
type LineString []Point

// Validate requires at least two points, each within coordinate range.
func (ls LineString) Validate() error {
	if len(ls) < 2 {
		return fmt.Errorf("%w: line string has %d points, need 2", ErrInvalidGeometry, len(ls))
	}
	for _, p := range ls {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether p lies inside or on the boundary of pg.
func Contains(pg Polygon, p Point) (bool, error) {
	if err := pg.Validate(); err != nil {
		return false, err
	}
	if err := p.Validate(); err != nil {
		return false, err
	}

	inside := false
	for _, e := range pg.edges() {
		a, b := e[0], e[1]
		if onSegment(a, b, p) {
			return true, nil
		}
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := a.Lon + (p.Lat-a.Lat)*(b.Lon-a.Lon)/(b.Lat-a.Lat)
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside, nil
}

const collinearEpsilon = 1e-12

func onSegment(a, b, p Point) bool {
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	if math.Abs(cross) > collinearEpsilon {
		return false
	}
	return p.Lon >= math.Min(a.Lon, b.Lon) && p.Lon <= math.Max(a.Lon, b.Lon) &&
		p.Lat >= math.Min(a.Lat, b.Lat) && p.Lat <= math.Max(a.Lat, b.Lat)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

func haversine(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadius * c
}

// DistanceToPolygonBoundary returns the minimum distance in meters from p to any edge of pg.
func DistanceToPolygonBoundary(p Point, pg Polygon) (float64, error) {
	if err := pg.Validate(); err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	best := math.Inf(1)
	for _, e := range pg.edges() {
		if d := distanceToSegment(p, e[0], e[1]); d < best {
			best = d
		}
	}
	return best, nil
}

// distanceToSegment finds the closest point of ab on a local equirectangular
// plane centred on p, then measures it with haversine.
func distanceToSegment(p, a, b Point) float64 {
	k := math.Cos(toRadians(p.Lat))
	ax, ay := (a.Lon-p.Lon)*k, a.Lat-p.Lat
	bx, by := (b.Lon-p.Lon)*k, b.Lat-p.Lat

	dx, dy := bx-ax, by-ay
	t := 0.0
	if l2 := dx*dx + dy*dy; l2 > 0 {
		t = -(ax*dx + ay*dy) / l2
		t = math.Max(0, math.Min(1, t))
	}
	closest := Point{
		Lon: a.Lon + t*(b.Lon-a.Lon),
		Lat: a.Lat + t*(b.Lat-a.Lat),
	}
	return haversine(p, closest)
}

// RoutesEqual reports exact ordered equality of two routes.
func RoutesEqual(a, b LineString) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
