package vatsim

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vatsimnerd/camden-server/internal/aircraft"
	"github.com/vatsimnerd/camden-server/internal/geom"
)

// TimestampParseFailures counts upstream timestamps that failed to
// parse and were replaced with the current instant. A non-zero value
// points at an upstream format change.
var TimestampParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "upstream_timestamp_parse_failures",
	Help: "Number of upstream timestamps replaced with the current time after a parse failure",
})

// Raw feed shapes, exactly as served.

type extGeneral struct {
	UpdatedAt string `json:"updated_at"`
}

type extFlightPlan struct {
	FlightRules string `json:"flight_rules"`
	Aircraft    string `json:"aircraft"`
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	Alternate   string `json:"alternate"`
	CruiseTAS   string `json:"cruise_tas"`
	Altitude    string `json:"altitude"`
	Deptime     string `json:"deptime"`
	EnrouteTime string `json:"enroute_time"`
	FuelTime    string `json:"fuel_time"`
	Remarks     string `json:"remarks"`
	Route       string `json:"route"`
}

type extPilot struct {
	CID         int            `json:"cid"`
	Name        string         `json:"name"`
	Callsign    string         `json:"callsign"`
	Server      string         `json:"server"`
	PilotRating int            `json:"pilot_rating"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Altitude    int            `json:"altitude"`
	Groundspeed int            `json:"groundspeed"`
	Transponder string         `json:"transponder"`
	Heading     int            `json:"heading"`
	QnhIHg      float64        `json:"qnh_i_hg"`
	QnhMb       float64        `json:"qnh_mb"`
	FlightPlan  *extFlightPlan `json:"flight_plan"`
	LogonTime   string         `json:"logon_time"`
	LastUpdated string         `json:"last_updated"`
}

type extController struct {
	CID         int      `json:"cid"`
	Name        string   `json:"name"`
	Callsign    string   `json:"callsign"`
	Frequency   string   `json:"frequency"`
	Facility    int      `json:"facility"`
	Rating      int      `json:"rating"`
	Server      string   `json:"server"`
	VisualRange int      `json:"visual_range"`
	AtisCode    *string  `json:"atis_code"`
	TextAtis    []string `json:"text_atis"`
	LogonTime   string   `json:"logon_time"`
	LastUpdated string   `json:"last_updated"`
}

type extSnapshot struct {
	General     extGeneral      `json:"general"`
	Pilots      []extPilot      `json:"pilots"`
	Controllers []extController `json:"controllers"`
}

// parseTime parses an RFC-3339 upstream timestamp, falling back to the
// current instant when the value is malformed. Records are never
// dropped over a bad timestamp.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		log.WithField("value", s).Warn("unparsable upstream timestamp, using current time")
		TimestampParseFailures.Inc()
		return time.Now().UTC()
	}
	return t.UTC()
}

func (e extPilot) convert() Pilot {
	var fp *FlightPlan
	var actype *aircraft.Aircraft
	if e.FlightPlan != nil {
		// string numerics in filed plans are user input; bad values
		// normalise to zero
		cruiseTAS, _ := strconv.Atoi(e.FlightPlan.CruiseTAS)
		altitude, _ := strconv.Atoi(e.FlightPlan.Altitude)
		fp = &FlightPlan{
			FlightRules: e.FlightPlan.FlightRules,
			Aircraft:    e.FlightPlan.Aircraft,
			Departure:   e.FlightPlan.Departure,
			Arrival:     e.FlightPlan.Arrival,
			Alternate:   e.FlightPlan.Alternate,
			CruiseTAS:   cruiseTAS,
			Altitude:    altitude,
			Deptime:     e.FlightPlan.Deptime,
			EnrouteTime: e.FlightPlan.EnrouteTime,
			FuelTime:    e.FlightPlan.FuelTime,
			Remarks:     e.FlightPlan.Remarks,
			Route:       e.FlightPlan.Route,
		}
		actype = aircraft.Guess(e.FlightPlan.Aircraft)
	}

	return Pilot{
		CID:          e.CID,
		Name:         e.Name,
		Callsign:     e.Callsign,
		Server:       e.Server,
		PilotRating:  e.PilotRating,
		Position:     geom.Point{Lat: e.Latitude, Lng: e.Longitude}.Clamp(),
		Altitude:     e.Altitude,
		Groundspeed:  e.Groundspeed,
		Transponder:  e.Transponder,
		Heading:      e.Heading,
		QnhIHg:       int(math.Round(e.QnhIHg * 100.0)),
		QnhMb:        int(e.QnhMb),
		AircraftType: actype,
		FlightPlan:   fp,
		LogonTime:    parseTime(e.LogonTime),
		LastUpdated:  parseTime(e.LastUpdated),
	}
}

func (e extController) convert() Controller {
	// frequency arrives as a decimal-MHz string; stored as integer kHz
	freqMHz, _ := strconv.ParseFloat(e.Frequency, 64)
	atisCode := ""
	if e.AtisCode != nil {
		atisCode = *e.AtisCode
	}
	return Controller{
		CID:         e.CID,
		Name:        e.Name,
		Callsign:    e.Callsign,
		Freq:        int(freqMHz * 1000.0),
		Facility:    FacilityFromCode(e.Facility),
		Rating:      e.Rating,
		Server:      e.Server,
		VisualRange: e.VisualRange,
		AtisCode:    atisCode,
		TextAtis:    strings.Join(e.TextAtis, "\n"),
		LogonTime:   parseTime(e.LogonTime),
		LastUpdated: parseTime(e.LastUpdated),
	}
}

func (e extSnapshot) convert() *Snapshot {
	snap := &Snapshot{
		UpdatedAt:   parseTime(e.General.UpdatedAt),
		Pilots:      make([]Pilot, 0, len(e.Pilots)),
		Controllers: make([]Controller, 0, len(e.Controllers)),
	}
	for _, p := range e.Pilots {
		snap.Pilots = append(snap.Pilots, p.convert())
	}
	for _, c := range e.Controllers {
		snap.Controllers = append(snap.Controllers, c.convert())
	}
	return snap
}
