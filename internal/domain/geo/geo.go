package geo

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/peopledir/internal/domain"
)

// MinRingPositions is the minimum number of positions in a closed linear ring.
const MinRingPositions = 4

// Point is a longitude/latitude position in degrees.
type Point struct {
	Lng float64
	Lat float64
}

// NewPoint validates and creates a Point.
func NewPoint(lng, lat float64) (Point, error) {
	if !ValidateCoordinates(lat, lng) {
		return Point{}, fmt.Errorf("coordinates out of range: lng=%f lat=%f: %w", lng, lat, domain.ErrInvalidArgument)
	}
	return Point{Lng: lng, Lat: lat}, nil
}

// Position returns the point as a GeoJSON position [lng, lat].
func (p Point) Position() [2]float64 { return [2]float64{p.Lng, p.Lat} }

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Polygon is a simple polygon described by its closed outer ring.
type Polygon struct {
	ring []Point
}

// NewPolygon validates the ring and closes it when the last point differs
// from the first. A closed ring needs at least MinRingPositions positions.
func NewPolygon(points []Point) (Polygon, error) {
	if len(points) == 0 {
		return Polygon{}, fmt.Errorf("polygon has no points: %w", domain.ErrInvalidPolygon)
	}
	for i, p := range points {
		if !ValidateCoordinates(p.Lat, p.Lng) {
			return Polygon{}, fmt.Errorf("point %d out of range (lng=%f lat=%f): %w", i, p.Lng, p.Lat, domain.ErrInvalidPolygon)
		}
	}

	ring := make([]Point, len(points), len(points)+1)
	copy(ring, points)
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	if len(ring) < MinRingPositions {
		return Polygon{}, fmt.Errorf("polygon ring needs at least %d positions, got %d: %w",
			MinRingPositions, len(ring), domain.ErrInvalidPolygon)
	}
	return Polygon{ring: ring}, nil
}

// Positions returns the ring as GeoJSON positions.
func (p Polygon) Positions() [][2]float64 {
	out := make([][2]float64, len(p.ring))
	for i, pt := range p.ring {
		out[i] = pt.Position()
	}
	return out
}

// MultiPolygon is an ordered list of simple polygons.
type MultiPolygon []Polygon

type geoJSONMultiPolygon struct {
	Type        string           `json:"type"`
	Coordinates [][][][2]float64 `json:"coordinates"`
}

// UnmarshalJSON decodes a GeoJSON MultiPolygon. Only the outer ring of each
// polygon is kept; holes are ignored.
func (m *MultiPolygon) UnmarshalJSON(data []byte) error {
	var raw geoJSONMultiPolygon
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode multipolygon: %w", err)
	}
	if raw.Type != "" && raw.Type != "MultiPolygon" {
		return fmt.Errorf("geometry type %q is not MultiPolygon: %w", raw.Type, domain.ErrInvalidPolygon)
	}

	out := make(MultiPolygon, 0, len(raw.Coordinates))
	for i, rings := range raw.Coordinates {
		if len(rings) == 0 {
			return fmt.Errorf("polygon %d has no rings: %w", i, domain.ErrInvalidPolygon)
		}
		points := make([]Point, len(rings[0]))
		for j, pos := range rings[0] {
			points[j] = Point{Lng: pos[0], Lat: pos[1]}
		}
		poly, err := NewPolygon(points)
		if err != nil {
			return fmt.Errorf("polygon %d: %w", i, err)
		}
		out = append(out, poly)
	}
	*m = out
	return nil
}

// MarshalJSON encodes the multipolygon as GeoJSON.
func (m MultiPolygon) MarshalJSON() ([]byte, error) {
	raw := geoJSONMultiPolygon{Type: "MultiPolygon", Coordinates: make([][][][2]float64, len(m))}
	for i, p := range m {
		raw.Coordinates[i] = [][][2]float64{p.Positions()}
	}
	return json.Marshal(raw)
}
