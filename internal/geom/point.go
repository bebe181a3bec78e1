// Package geom holds the geodetic primitives shared by the live-state
// engine: points, viewport rectangles and the spatial indices built on
// top of them. Axis order everywhere is (lng, lat).
package geom

import "math"

// Longitude extremes used when a wrapped envelope is split at the
// antimeridian. Kept a hair inside ±180 so both halves stay valid
// tree envelopes.
const (
	MaxLng = 179.9999
	MinLng = -179.9999
)

// Point is a position on the globe. Lat is degrees north, Lng degrees
// east with the wrap point at ±180.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Clamp normalises the point: latitude is clamped to [-90, 90],
// longitude is wrapped into (-180, 180].
func (p Point) Clamp() Point {
	lng := math.Mod(p.Lng+180.0, 360.0)
	if lng < 0 {
		lng += 360.0
	}
	return Point{
		Lat: math.Max(-90.0, math.Min(90.0, p.Lat)),
		Lng: lng - 180.0,
	}
}

// Coord returns the point in tree axis order (lng, lat).
func (p Point) Coord() [2]float64 {
	return [2]float64{p.Lng, p.Lat}
}

// Envelope returns the degenerate bounds covering just this point.
func (p Point) Envelope() Bounds {
	return Bounds{Min: p.Coord(), Max: p.Coord()}
}
