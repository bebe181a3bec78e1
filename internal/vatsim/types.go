// Package vatsim fetches and decodes one snapshot of the live network
// feed, normalising raw feed records into domain types.
package vatsim

import (
	"fmt"
	"time"

	"github.com/vatsimnerd/camden-server/internal/aircraft"
	"github.com/vatsimnerd/camden-server/internal/geom"
)

// Facility classifies a controller position.
type Facility int

const (
	FacilityReject Facility = iota
	FacilityATIS
	FacilityDelivery
	FacilityGround
	FacilityTower
	FacilityApproach
	FacilityRadar
)

// FacilityFromCode maps the feed's integer code to a Facility.
// Anything outside 1..6 folds to Reject.
func FacilityFromCode(code int) Facility {
	if code >= 1 && code <= 6 {
		return Facility(code)
	}
	return FacilityReject
}

func (f Facility) String() string {
	switch f {
	case FacilityATIS:
		return "atis"
	case FacilityDelivery:
		return "delivery"
	case FacilityGround:
		return "ground"
	case FacilityTower:
		return "tower"
	case FacilityApproach:
		return "approach"
	case FacilityRadar:
		return "radar"
	default:
		return "reject"
	}
}

// Pilot is one live aircraft.
type Pilot struct {
	CID          int                `json:"cid"`
	Name         string             `json:"name"`
	Callsign     string             `json:"callsign"`
	Server       string             `json:"server"`
	PilotRating  int                `json:"pilot_rating"`
	Position     geom.Point         `json:"position"`
	Altitude     int                `json:"altitude"`
	Groundspeed  int                `json:"groundspeed"`
	Transponder  string             `json:"transponder"`
	Heading      int                `json:"heading"`
	QnhIHg       int                `json:"qnh_i_hg"`
	QnhMb        int                `json:"qnh_mb"`
	AircraftType *aircraft.Aircraft `json:"aircraft_type,omitempty"`
	FlightPlan   *FlightPlan        `json:"flight_plan,omitempty"`
	LogonTime    time.Time          `json:"logon_time"`
	LastUpdated  time.Time          `json:"last_updated"`
}

// TrackCode groups this pilot's positions into a single flight.
func (p *Pilot) TrackCode() string {
	return fmt.Sprintf("%d:%s:%d", p.CID, p.Callsign, p.LogonTime.Unix())
}

func (p *Pilot) Equal(other *Pilot) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.CID != other.CID ||
		p.Name != other.Name ||
		p.Callsign != other.Callsign ||
		p.Server != other.Server ||
		p.PilotRating != other.PilotRating ||
		p.Position != other.Position ||
		p.Altitude != other.Altitude ||
		p.Groundspeed != other.Groundspeed ||
		p.Transponder != other.Transponder ||
		p.Heading != other.Heading ||
		p.QnhIHg != other.QnhIHg ||
		p.QnhMb != other.QnhMb ||
		!p.LogonTime.Equal(other.LogonTime) ||
		!p.LastUpdated.Equal(other.LastUpdated) {
		return false
	}
	if (p.AircraftType == nil) != (other.AircraftType == nil) {
		return false
	}
	if p.AircraftType != nil && *p.AircraftType != *other.AircraftType {
		return false
	}
	if (p.FlightPlan == nil) != (other.FlightPlan == nil) {
		return false
	}
	if p.FlightPlan != nil && *p.FlightPlan != *other.FlightPlan {
		return false
	}
	return true
}

// FlightPlan is the filed plan attached to a pilot.
type FlightPlan struct {
	FlightRules string `json:"flight_rules"`
	Aircraft    string `json:"aircraft"`
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	Alternate   string `json:"alternate"`
	CruiseTAS   int    `json:"cruise_tas"`
	Altitude    int    `json:"altitude"`
	Deptime     string `json:"deptime"`
	EnrouteTime string `json:"enroute_time"`
	FuelTime    string `json:"fuel_time"`
	Remarks     string `json:"remarks"`
	Route       string `json:"route"`
}

// Controller is one live ATC position.
type Controller struct {
	CID         int       `json:"cid"`
	Name        string    `json:"name"`
	Callsign    string    `json:"callsign"`
	Freq        int       `json:"freq"`
	Facility    Facility  `json:"facility"`
	Rating      int       `json:"rating"`
	Server      string    `json:"server"`
	VisualRange int       `json:"visual_range"`
	AtisCode    string    `json:"atis_code"`
	TextAtis    string    `json:"text_atis"`
	HumanReadable string  `json:"human_readable,omitempty"`
	LogonTime   time.Time `json:"logon_time"`
	LastUpdated time.Time `json:"last_updated"`
}

// Equal ignores LastUpdated: a record that only refreshed its
// timestamp is the same controller and must not trigger side effects
// downstream.
func (c *Controller) Equal(other *Controller) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.CID == other.CID &&
		c.Name == other.Name &&
		c.Callsign == other.Callsign &&
		c.Freq == other.Freq &&
		c.Facility == other.Facility &&
		c.Rating == other.Rating &&
		c.Server == other.Server &&
		c.VisualRange == other.VisualRange &&
		c.AtisCode == other.AtisCode &&
		c.TextAtis == other.TextAtis &&
		c.HumanReadable == other.HumanReadable &&
		c.LogonTime.Equal(other.LogonTime)
}

// ControllerSet collects the non-radar controllers of one airport.
type ControllerSet struct {
	Atis     *Controller `json:"atis,omitempty"`
	Delivery *Controller `json:"delivery,omitempty"`
	Ground   *Controller `json:"ground,omitempty"`
	Tower    *Controller `json:"tower,omitempty"`
	Approach *Controller `json:"approach,omitempty"`
}

func (cs *ControllerSet) IsEmpty() bool {
	return cs.Atis == nil && cs.Delivery == nil && cs.Ground == nil &&
		cs.Tower == nil && cs.Approach == nil
}

func (cs *ControllerSet) Equal(other *ControllerSet) bool {
	return cs.Atis.Equal(other.Atis) &&
		cs.Delivery.Equal(other.Delivery) &&
		cs.Ground.Equal(other.Ground) &&
		cs.Tower.Equal(other.Tower) &&
		cs.Approach.Equal(other.Approach)
}

// Snapshot is one decoded poll of the network feed.
type Snapshot struct {
	UpdatedAt   time.Time
	Pilots      []Pilot
	Controllers []Controller
}
