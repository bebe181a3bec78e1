// Package fixed holds the static reference data: airports, FIRs,
// countries and geonames shapes, plus the dynamic controller slots
// attached to airports and FIRs at runtime.
package fixed

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/vatsimnerd/camden-server/internal/atis"
	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
	"github.com/vatsimnerd/camden-server/internal/weather"
)

// Country is one VATSpy country record: the callsign prefix plus an
// optional display name for its radar positions.
type Country struct {
	Name        string `json:"name"`
	Prefix      string `json:"prefix"`
	ControlName string `json:"control_name,omitempty"`
}

// Runway is one runway end of an airport.
type Runway struct {
	Ident     string  `json:"ident"`
	Heading   float64 `json:"heading"`
	LengthFt  int     `json:"length_ft"`
	WidthFt   int     `json:"width_ft"`
	Surface   string  `json:"surface"`
	ActiveLnd bool    `json:"active_lnd"`
	ActiveTo  bool    `json:"active_to"`
}

// Airport is a static airport record with its live controller slots.
// Wx is attached on the way out when the client asked for weather; it
// never lives in the shared state.
type Airport struct {
	ICAO        string               `json:"icao"`
	IATA        string               `json:"iata"`
	Name        string               `json:"name"`
	Position    geom.Point           `json:"position"`
	FIRID       string               `json:"fir_id"`
	IsPseudo    bool                 `json:"is_pseudo"`
	Controllers vatsim.ControllerSet `json:"controllers"`
	Runways     map[string]Runway    `json:"runways"`
	Wx          *weather.Info        `json:"wx,omitempty"`
}

// CompoundID is the airport's spatial-index key.
func (a *Airport) CompoundID() string {
	return fmt.Sprintf("%s:%s", a.ICAO, a.IATA)
}

func (a *Airport) resetActiveRunways() {
	for ident, rwy := range a.Runways {
		rwy.ActiveLnd = false
		rwy.ActiveTo = false
		a.Runways[ident] = rwy
	}
}

// SetActiveRunways re-derives the active-runway flags from the current
// ATIS controller, clearing them first. No ATIS means no active
// runways.
func (a *Airport) SetActiveRunways() {
	a.resetActiveRunways()
	if a.Controllers.Atis == nil {
		return
	}
	norm := atis.Normalize(a.Controllers.Atis.TextAtis)
	for _, ident := range atis.DetectArrivals(norm) {
		if rwy, ok := a.Runways[ident]; ok {
			rwy.ActiveLnd = true
			a.Runways[ident] = rwy
		}
	}
	for _, ident := range atis.DetectDepartures(norm) {
		if rwy, ok := a.Runways[ident]; ok {
			rwy.ActiveTo = true
			a.Runways[ident] = rwy
		}
	}
}

// Clone returns a deep copy safe to hand out to readers while the
// original keeps mutating.
func (a *Airport) Clone() *Airport {
	cp := *a
	cp.Runways = make(map[string]Runway, len(a.Runways))
	for k, v := range a.Runways {
		cp.Runways[k] = v
	}
	cp.Controllers = cloneControllerSet(a.Controllers)
	return &cp
}

func (a *Airport) Equal(other *Airport) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.ICAO != other.ICAO || a.IATA != other.IATA || a.Name != other.Name ||
		a.Position != other.Position || a.FIRID != other.FIRID || a.IsPseudo != other.IsPseudo {
		return false
	}
	if !a.Controllers.Equal(&other.Controllers) {
		return false
	}
	if !a.Wx.Equal(other.Wx) {
		return false
	}
	if len(a.Runways) != len(other.Runways) {
		return false
	}
	for k, v := range a.Runways {
		if ov, ok := other.Runways[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func cloneControllerSet(cs vatsim.ControllerSet) vatsim.ControllerSet {
	cloneCtrl := func(c *vatsim.Controller) *vatsim.Controller {
		if c == nil {
			return nil
		}
		cp := *c
		return &cp
	}
	return vatsim.ControllerSet{
		Atis:     cloneCtrl(cs.Atis),
		Delivery: cloneCtrl(cs.Delivery),
		Ground:   cloneCtrl(cs.Ground),
		Tower:    cloneCtrl(cs.Tower),
		Approach: cloneCtrl(cs.Approach),
	}
}

// Boundaries is a FIR's geographic boundary. Equality is by id:
// boundaries never change within a run.
type Boundaries struct {
	ID        string             `json:"id"`
	Region    string             `json:"region"`
	Division  string             `json:"division"`
	IsOceanic bool               `json:"is_oceanic"`
	Min       geom.Point         `json:"min"`
	Max       geom.Point         `json:"max"`
	Center    geom.Point         `json:"center"`
	Points    [][]geom.Point     `json:"points"`
}

// FIR is a flight information region with its live radar controllers.
type FIR struct {
	ICAO        string                        `json:"icao"`
	Name        string                        `json:"name"`
	Prefix      string                        `json:"prefix"`
	Boundaries  Boundaries                    `json:"boundaries"`
	Controllers map[string]*vatsim.Controller `json:"controllers"`
}

func (f *FIR) IsEmpty() bool {
	return len(f.Controllers) == 0
}

func (f *FIR) Clone() *FIR {
	cp := *f
	cp.Controllers = make(map[string]*vatsim.Controller, len(f.Controllers))
	for k, v := range f.Controllers {
		c := *v
		cp.Controllers[k] = &c
	}
	return &cp
}

func (f *FIR) Equal(other *FIR) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.ICAO != other.ICAO || f.Name != other.Name || f.Prefix != other.Prefix ||
		f.Boundaries.ID != other.Boundaries.ID {
		return false
	}
	if len(f.Controllers) != len(other.Controllers) {
		return false
	}
	for k, v := range f.Controllers {
		if ov, ok := other.Controllers[k]; !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// UIR is an upper information region grouping several FIRs.
type UIR struct {
	ICAO   string   `json:"icao"`
	Name   string   `json:"name"`
	FIRIDs []string `json:"fir_ids"`
}

// GeonamesCountry is one geonames countryInfo record.
type GeonamesCountry struct {
	ISO        string   `json:"iso"`
	ISO3       string   `json:"iso3"`
	Name       string   `json:"name"`
	Capital    string   `json:"capital"`
	Continent  string   `json:"continent"`
	Neighbours []string `json:"neighbours"`
	GeonameID  string   `json:"geoname_id"`
}

// GeonamesShape is one country outline used for reverse geocoding.
type GeonamesShape struct {
	RefID    string
	Geometry orb.MultiPolygon
	Bound    geom.Rect
}

// Contains tests the point against the shape's polygons. Callers are
// expected to pre-filter with the bounding rectangle.
func (s *GeonamesShape) Contains(p geom.Point) bool {
	return planar.MultiPolygonContains(s.Geometry, orb.Point{p.Lng, p.Lat})
}
