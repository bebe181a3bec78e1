package fixed

import (
	"testing"
	"time"

	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

func testData() *Data {
	egll := &Airport{
		ICAO:     "EGLL",
		IATA:     "LHR",
		Name:     "London Heathrow",
		Position: geom.Point{Lat: 51.4775, Lng: -0.461389},
		FIRID:    "EGTT",
		Runways: map[string]Runway{
			"09L": {Ident: "09L"},
			"27R": {Ident: "27R"},
			"27L": {Ident: "27L"},
		},
	}
	egtt := &FIR{
		ICAO:        "EGTT",
		Name:        "London",
		Prefix:      "LON",
		Boundaries:  Boundaries{ID: "EGTT"},
		Controllers: map[string]*vatsim.Controller{},
	}
	kzny := &FIR{
		ICAO:        "KZNY",
		Name:        "New York",
		Prefix:      "NY",
		Boundaries:  Boundaries{ID: "KZNY"},
		Controllers: map[string]*vatsim.Controller{},
	}
	uir := &UIR{ICAO: "EURW", Name: "West European", FIRIDs: []string{"EGTT", "KZNY"}}
	return NewData([]*Airport{egll}, []*FIR{egtt, kzny}, []*UIR{uir}, []Country{
		{Name: "United Kingdom", Prefix: "EG"},
	})
}

func TestFindAirport(t *testing.T) {
	d := testData()

	tests := []struct {
		name  string
		code  string
		found bool
	}{
		{"by icao", "EGLL", true},
		{"by compound id", "EGLL:LHR", true},
		{"lowercase misses", "egll", false},
		{"unknown", "KJFK", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arpt := d.FindAirport(tt.code)
			if (arpt != nil) != tt.found {
				t.Errorf("FindAirport(%q) found = %v, want %v", tt.code, arpt != nil, tt.found)
			}
		})
	}
}

func TestFindAirportReturnsCopy(t *testing.T) {
	d := testData()
	a := d.FindAirport("EGLL")
	a.Runways["09L"] = Runway{Ident: "09L", ActiveLnd: true}

	b := d.FindAirport("EGLL")
	if b.Runways["09L"].ActiveLnd {
		t.Errorf("mutating a returned airport leaked into the store")
	}
}

func TestSetAirportControllerTower(t *testing.T) {
	d := testData()
	d.SetAirportController(vatsim.Controller{
		Callsign: "EGLL_TWR",
		Facility: vatsim.FacilityTower,
		Freq:     118500,
	})

	arpt := d.FindAirport("EGLL")
	if arpt.Controllers.Tower == nil || arpt.Controllers.Tower.Callsign != "EGLL_TWR" {
		t.Fatalf("tower slot = %+v", arpt.Controllers.Tower)
	}
	if arpt.Controllers.Ground != nil {
		t.Errorf("ground slot should stay empty")
	}
}

func TestSetAirportControllerByIATA(t *testing.T) {
	d := testData()
	d.SetAirportController(vatsim.Controller{
		Callsign: "LHR_GND",
		Facility: vatsim.FacilityGround,
	})

	arpt := d.FindAirport("EGLL")
	if arpt.Controllers.Ground == nil {
		t.Errorf("IATA-prefixed callsign did not attach")
	}
}

func TestAtisActivatesRunways(t *testing.T) {
	d := testData()
	d.SetAirportController(vatsim.Controller{
		Callsign: "EGLL_ATIS",
		Facility: vatsim.FacilityATIS,
		TextAtis: "HEATHROW INFO K. LDG RWY 27R. DEP RWY 27L.",
	})

	arpt := d.FindAirport("EGLL")
	if !arpt.Runways["27R"].ActiveLnd {
		t.Errorf("27R should be active for landing")
	}
	if !arpt.Runways["27L"].ActiveTo {
		t.Errorf("27L should be active for takeoff")
	}
	if arpt.Runways["09L"].ActiveLnd || arpt.Runways["09L"].ActiveTo {
		t.Errorf("09L should stay inactive")
	}
}

func TestAtisResetClearsRunways(t *testing.T) {
	d := testData()
	ctrl := vatsim.Controller{
		Callsign: "EGLL_ATIS",
		Facility: vatsim.FacilityATIS,
		TextAtis: "LDG RWY 27R.",
	}
	d.SetAirportController(ctrl)
	d.ResetAirportController(ctrl)

	arpt := d.FindAirport("EGLL")
	if arpt.Controllers.Atis != nil {
		t.Errorf("atis slot should be cleared")
	}
	if arpt.Runways["27R"].ActiveLnd {
		t.Errorf("runway should deactivate with the ATIS gone")
	}
}

func TestSetAirportControllerIsIdempotent(t *testing.T) {
	d := testData()
	ctrl := vatsim.Controller{
		Callsign:    "EGLL_ATIS",
		Facility:    vatsim.FacilityATIS,
		TextAtis:    "LDG RWY 27R.",
		LastUpdated: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
	}
	d.SetAirportController(ctrl)
	before := d.FindAirport("EGLL")

	// same controller, refreshed timestamp
	ctrl.LastUpdated = ctrl.LastUpdated.Add(time.Minute)
	d.SetAirportController(ctrl)
	after := d.FindAirport("EGLL")

	if !before.Equal(after) {
		t.Errorf("re-setting an unchanged controller should not change the airport")
	}
}

func TestFIRControllerAttachment(t *testing.T) {
	d := testData()
	ctrl := vatsim.Controller{Callsign: "EGTT_CTR", Facility: vatsim.FacilityRadar}
	d.SetFIRController(ctrl)

	firs := d.FindFIRs("EGTT")
	if len(firs) != 1 {
		t.Fatalf("FindFIRs = %d records", len(firs))
	}
	if _, ok := firs[0].Controllers["EGTT_CTR"]; !ok {
		t.Errorf("controller not attached to FIR")
	}

	d.ResetFIRController(ctrl)
	firs = d.FindFIRs("EGTT")
	if !firs[0].IsEmpty() {
		t.Errorf("controller not detached from FIR")
	}
}

func TestFIRControllerByPrefix(t *testing.T) {
	d := testData()
	d.SetFIRController(vatsim.Controller{Callsign: "LON_S_CTR", Facility: vatsim.FacilityRadar})

	firs := d.FindFIRs("EGTT")
	if _, ok := firs[0].Controllers["LON_S_CTR"]; !ok {
		t.Errorf("prefix-matched controller not attached")
	}
}

func TestFIRControllerViaUIR(t *testing.T) {
	d := testData()
	d.SetFIRController(vatsim.Controller{Callsign: "EURW_CTR", Facility: vatsim.FacilityRadar})

	for _, icao := range []string{"EGTT", "KZNY"} {
		firs := d.FindFIRs(icao)
		if len(firs) == 0 || firs[0].IsEmpty() {
			t.Errorf("UIR controller not attached to %s", icao)
		}
	}
}
