package fixed

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

// Data is the static reference container. It is not safe for
// concurrent use on its own; the manager guards it with a lock.
type Data struct {
	airports         map[string]*Airport // by ICAO
	airportsByIATA   map[string]*Airport
	airportsCompound map[string]*Airport
	firs             map[string][]*FIR // by ICAO, more than one record possible
	firsByPrefix     map[string][]*FIR
	uirs             map[string]*UIR
	countries        map[string]Country // by callsign prefix
}

func NewData(airports []*Airport, firs []*FIR, uirs []*UIR, countries []Country) *Data {
	d := &Data{
		airports:         make(map[string]*Airport, len(airports)),
		airportsByIATA:   make(map[string]*Airport),
		airportsCompound: make(map[string]*Airport, len(airports)),
		firs:             make(map[string][]*FIR),
		firsByPrefix:     make(map[string][]*FIR),
		uirs:             make(map[string]*UIR, len(uirs)),
		countries:        make(map[string]Country, len(countries)),
	}
	for _, arpt := range airports {
		d.airports[arpt.ICAO] = arpt
		d.airportsCompound[arpt.CompoundID()] = arpt
		if arpt.IATA != "" {
			d.airportsByIATA[arpt.IATA] = arpt
		}
	}
	for _, fir := range firs {
		d.firs[fir.ICAO] = append(d.firs[fir.ICAO], fir)
		if fir.Prefix != "" && fir.Prefix != fir.ICAO {
			d.firsByPrefix[fir.Prefix] = append(d.firsByPrefix[fir.Prefix], fir)
		}
	}
	for _, uir := range uirs {
		d.uirs[uir.ICAO] = uir
	}
	for _, country := range countries {
		d.countries[country.Prefix] = country
	}
	return d
}

// Airports iterates all airports, for index building.
func (d *Data) Airports(fn func(*Airport)) {
	for _, arpt := range d.airports {
		fn(arpt)
	}
}

// FIRs iterates all FIR records.
func (d *Data) FIRs(fn func(*FIR)) {
	for _, list := range d.firs {
		for _, fir := range list {
			fn(fir)
		}
	}
}

// FindAirport accepts an ICAO code or a compound id and returns a
// copy, or nil. Lookup is case-sensitive.
func (d *Data) FindAirport(code string) *Airport {
	if arpt, ok := d.airports[code]; ok {
		return arpt.Clone()
	}
	if arpt, ok := d.airportsCompound[code]; ok {
		return arpt.Clone()
	}
	return nil
}

// FindAirportCompound looks up by compound id only.
func (d *Data) FindAirportCompound(cid string) *Airport {
	if arpt, ok := d.airportsCompound[cid]; ok {
		return arpt.Clone()
	}
	return nil
}

// FindFIRs returns copies of every FIR record registered under the
// ICAO code.
func (d *Data) FindFIRs(icao string) []*FIR {
	list := d.firs[icao]
	out := make([]*FIR, 0, len(list))
	for _, fir := range list {
		out = append(out, fir.Clone())
	}
	return out
}

func (d *Data) Country(prefix string) (Country, bool) {
	c, ok := d.countries[prefix]
	return c, ok
}

// callsignKey is the part of a controller callsign before the first
// underscore: EGLL_TWR -> EGLL, LON_S_CTR -> LON.
func callsignKey(callsign string) string {
	if i := strings.IndexByte(callsign, '_'); i >= 0 {
		return callsign[:i]
	}
	return callsign
}

func (d *Data) airportForCallsign(callsign string) *Airport {
	key := callsignKey(callsign)
	if arpt, ok := d.airports[key]; ok {
		return arpt
	}
	if arpt, ok := d.airportsByIATA[key]; ok {
		return arpt
	}
	return nil
}

func (d *Data) firsForCallsign(callsign string) []*FIR {
	key := callsignKey(callsign)
	if list, ok := d.firs[key]; ok {
		return list
	}
	if uir, ok := d.uirs[key]; ok {
		var list []*FIR
		for _, id := range uir.FIRIDs {
			list = append(list, d.firs[id]...)
		}
		return list
	}
	return d.firsByPrefix[key]
}

// SetAirportController attaches a non-radar controller to the airport
// matched by its callsign prefix, overwriting the facility slot. An
// ATIS whose content changed re-derives the active runways.
func (d *Data) SetAirportController(c vatsim.Controller) {
	arpt := d.airportForCallsign(c.Callsign)
	if arpt == nil {
		log.WithField("callsign", c.Callsign).Debug("no airport for controller")
		return
	}
	ctrl := c
	switch c.Facility {
	case vatsim.FacilityATIS:
		changed := !arpt.Controllers.Atis.Equal(&ctrl)
		arpt.Controllers.Atis = &ctrl
		if changed {
			arpt.SetActiveRunways()
		}
	case vatsim.FacilityDelivery:
		arpt.Controllers.Delivery = &ctrl
	case vatsim.FacilityGround:
		arpt.Controllers.Ground = &ctrl
	case vatsim.FacilityTower:
		arpt.Controllers.Tower = &ctrl
	case vatsim.FacilityApproach:
		arpt.Controllers.Approach = &ctrl
	}
}

// ResetAirportController clears the slot held by a disappeared
// controller. The slot is determined from the stored controller's
// facility.
func (d *Data) ResetAirportController(c vatsim.Controller) {
	arpt := d.airportForCallsign(c.Callsign)
	if arpt == nil {
		return
	}
	switch c.Facility {
	case vatsim.FacilityATIS:
		if arpt.Controllers.Atis != nil && arpt.Controllers.Atis.Callsign == c.Callsign {
			arpt.Controllers.Atis = nil
			arpt.SetActiveRunways()
		}
	case vatsim.FacilityDelivery:
		if arpt.Controllers.Delivery != nil && arpt.Controllers.Delivery.Callsign == c.Callsign {
			arpt.Controllers.Delivery = nil
		}
	case vatsim.FacilityGround:
		if arpt.Controllers.Ground != nil && arpt.Controllers.Ground.Callsign == c.Callsign {
			arpt.Controllers.Ground = nil
		}
	case vatsim.FacilityTower:
		if arpt.Controllers.Tower != nil && arpt.Controllers.Tower.Callsign == c.Callsign {
			arpt.Controllers.Tower = nil
		}
	case vatsim.FacilityApproach:
		if arpt.Controllers.Approach != nil && arpt.Controllers.Approach.Callsign == c.Callsign {
			arpt.Controllers.Approach = nil
		}
	}
}

// SetFIRController attaches a radar controller to every FIR matched by
// its callsign prefix, directly or through a UIR.
func (d *Data) SetFIRController(c vatsim.Controller) {
	firs := d.firsForCallsign(c.Callsign)
	if len(firs) == 0 {
		log.WithField("callsign", c.Callsign).Debug("no FIR for controller")
		return
	}
	for _, fir := range firs {
		ctrl := c
		fir.Controllers[c.Callsign] = &ctrl
	}
}

// ResetFIRController detaches a disappeared radar controller.
func (d *Data) ResetFIRController(c vatsim.Controller) {
	for _, fir := range d.firsForCallsign(c.Callsign) {
		delete(fir.Controllers, c.Callsign)
	}
}
