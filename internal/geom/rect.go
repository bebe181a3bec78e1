package geom

// Rect is a viewport rectangle given as its south-west and north-east
// corners. When SouthWest.Lng > NorthEast.Lng the rectangle crosses the
// antimeridian ("wrapped") and must be split before querying a tree.
type Rect struct {
	SouthWest Point `json:"south_west"`
	NorthEast Point `json:"north_east"`
}

// NewRect builds a Rect from raw viewport coordinates.
func NewRect(minLng, minLat, maxLng, maxLat float64) Rect {
	return Rect{
		SouthWest: Point{Lat: minLat, Lng: minLng},
		NorthEast: Point{Lat: maxLat, Lng: maxLng},
	}
}

func (r Rect) Width() float64 {
	return (r.NorthEast.Lng + 180.0) - (r.SouthWest.Lng + 180.0)
}

func (r Rect) Height() float64 {
	return r.NorthEast.Lat - r.SouthWest.Lat
}

// Wrapped reports whether the rectangle crosses the antimeridian.
func (r Rect) Wrapped() bool {
	return r.SouthWest.Lng > r.NorthEast.Lng
}

// Scale grows (or shrinks) the rectangle around its center: each axis
// is extended by (multiplier-1)/2 on both sides, then the corners are
// normalised back into range.
func (r Rect) Scale(multiplier float64) Rect {
	ext := multiplier - 1.0
	lngExt := r.Width() * ext / 2.0
	latExt := r.Height() * ext / 2.0
	sw := Point{Lat: r.SouthWest.Lat - latExt, Lng: r.SouthWest.Lng - lngExt}
	ne := Point{Lat: r.NorthEast.Lat + latExt, Lng: r.NorthEast.Lng + lngExt}
	return Rect{SouthWest: sw.Clamp(), NorthEast: ne.Clamp()}
}

// Envelope returns the rect as tree bounds, axis order (lng, lat).
func (r Rect) Envelope() Bounds {
	return Bounds{Min: r.SouthWest.Coord(), Max: r.NorthEast.Coord()}
}

// Bounds is an axis-aligned tree envelope, Min/Max in (lng, lat) order.
type Bounds struct {
	Min [2]float64
	Max [2]float64
}

// Split breaks a wrapped envelope into its two antimeridian halves.
// An unwrapped envelope comes back unchanged as a single element.
func (b Bounds) Split() []Bounds {
	if b.Min[0] > 0 && b.Max[0] < 0 {
		return []Bounds{
			{Min: [2]float64{b.Min[0], b.Min[1]}, Max: [2]float64{MaxLng, b.Max[1]}},
			{Min: [2]float64{MinLng, b.Min[1]}, Max: [2]float64{b.Max[0], b.Max[1]}},
		}
	}
	return []Bounds{b}
}
