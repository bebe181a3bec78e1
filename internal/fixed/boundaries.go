package fixed

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/vatsimnerd/camden-server/internal/geom"
)

// parseBoundaries decodes the FIR boundaries GeoJSON into a map keyed
// by boundary id. Each feature carries id/oceanic/region/division
// properties and a label point for the boundary center.
func parseBoundaries(r io.Reader) (map[string]Boundaries, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading boundaries: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding boundaries geojson: %w", err)
	}

	boundaries := make(map[string]Boundaries, len(fc.Features))
	for _, feat := range fc.Features {
		id, _ := feat.Properties["id"].(string)
		if id == "" {
			continue
		}
		region, _ := feat.Properties["region"].(string)
		division, _ := feat.Properties["division"].(string)
		oceanic, _ := feat.Properties["oceanic"].(string)

		bound := feat.Geometry.Bound()
		b := Boundaries{
			ID:        id,
			Region:    region,
			Division:  division,
			IsOceanic: oceanic == "1",
			Min:       geom.Point{Lat: bound.Min[1], Lng: bound.Min[0]},
			Max:       geom.Point{Lat: bound.Max[1], Lng: bound.Max[0]},
			Points:    geometryRings(feat.Geometry),
		}
		b.Center = geom.Point{
			Lat: (b.Min.Lat + b.Max.Lat) / 2.0,
			Lng: (b.Min.Lng + b.Max.Lng) / 2.0,
		}
		if lon, ok := feat.Properties["label_lon"].(float64); ok {
			if lat, ok := feat.Properties["label_lat"].(float64); ok {
				b.Center = geom.Point{Lat: lat, Lng: lon}
			}
		}
		boundaries[id] = b
	}
	return boundaries, nil
}

func geometryRings(g orb.Geometry) [][]geom.Point {
	var rings [][]geom.Point
	appendPoly := func(poly orb.Polygon) {
		for _, ring := range poly {
			points := make([]geom.Point, 0, len(ring))
			for _, p := range ring {
				points = append(points, geom.Point{Lat: p[1], Lng: p[0]})
			}
			rings = append(rings, points)
		}
	}

	switch shape := g.(type) {
	case orb.Polygon:
		appendPoly(shape)
	case orb.MultiPolygon:
		for _, poly := range shape {
			appendPoly(poly)
		}
	}
	return rings
}
