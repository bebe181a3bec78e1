package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vatsimnerd/camden-server/internal/fixed"
	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
	"github.com/vatsimnerd/camden-server/internal/weather"
)

// fakeSource serves canned state to a session under test.
type fakeSource struct {
	pilots   []*vatsim.Pilot
	airports []*fixed.Airport
	firs     []*fixed.FIR
	wx       *weather.Manager
}

func (f *fakeSource) GetPilots(geom.Rect) []*vatsim.Pilot          { return f.pilots }
func (f *fakeSource) GetAllPilots() []*vatsim.Pilot                { return f.pilots }
func (f *fakeSource) GetAirports(geom.Rect, bool) []*fixed.Airport { return f.airports }
func (f *fakeSource) GetAllAirports(bool) []*fixed.Airport         { return f.airports }
func (f *fakeSource) GetFIRs(geom.Rect) []*fixed.FIR               { return f.firs }
func (f *fakeSource) GetAllFIRs() []*fixed.FIR                     { return f.firs }
func (f *fakeSource) Weather() *weather.Manager                    { return f.wx }

func sessionAirport(icao string) *fixed.Airport {
	return &fixed.Airport{
		ICAO:     icao,
		Name:     icao,
		Position: geom.Point{Lat: 51.47, Lng: -0.45},
		Runways:  map[string]fixed.Runway{},
		Controllers: vatsim.ControllerSet{
			Tower: &vatsim.Controller{Callsign: icao + "_TWR", Facility: vatsim.FacilityTower},
		},
	}
}

func sessionFIR(icao string) *fixed.FIR {
	return &fixed.FIR{
		ICAO: icao,
		Controllers: map[string]*vatsim.Controller{
			icao + "_CTR": {Callsign: icao + "_CTR", Facility: vatsim.FacilityRadar},
		},
	}
}

func manyPilots(n int) []*vatsim.Pilot {
	pilots := make([]*vatsim.Pilot, n)
	for i := range pilots {
		pilots[i] = diffPilot(fmt.Sprintf("BAW%03d", i), 30000+i)
	}
	return pilots
}

type sentMessage struct {
	objectType string
	setCount   int
	delCount   int
}

func describe(msg UpdateMessage) sentMessage {
	sm := sentMessage{objectType: msg.ObjectType}
	if msg.Data.Set != nil {
		sm.setCount = len(msg.Data.Set.Pilots) + len(msg.Data.Set.Airports) + len(msg.Data.Set.FIRs)
	}
	if msg.Data.Delete != nil {
		sm.delCount = len(msg.Data.Delete.Pilots) + len(msg.Data.Delete.Airports) + len(msg.Data.Delete.FIRs)
	}
	return sm
}

func TestSessionTickChunkingAndOrder(t *testing.T) {
	src := &fakeSource{
		pilots:   manyPilots(250),
		airports: []*fixed.Airport{sessionAirport("EGLL")},
		firs:     []*fixed.FIR{sessionFIR("EGTT")},
	}
	sess := newSession(src, londonSessionRect(), 5.0, false, nil)

	msgs := sess.tick(context.Background())
	if len(msgs) != 8 {
		t.Fatalf("tick produced %d messages, want 8", len(msgs))
	}

	want := []sentMessage{
		{objectType: "pilot", setCount: 100},
		{objectType: "pilot", setCount: 100},
		{objectType: "pilot", setCount: 50},
		{objectType: "pilot"}, // empty delete
		{objectType: "airport", setCount: 1},
		{objectType: "airport"},
		{objectType: "fir", setCount: 1},
		{objectType: "fir"},
	}
	for i, msg := range msgs {
		if got := describe(msg); got != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got, want[i])
		}
		if msg.MessageType != "update" {
			t.Errorf("message %d type = %q, want update", i, msg.MessageType)
		}
		if msg.ConnectionID != sess.id {
			t.Errorf("message %d connection id = %q, want %q", i, msg.ConnectionID, sess.id)
		}
	}
}

func TestSessionStreamSuppressesEmptyMessages(t *testing.T) {
	src := &fakeSource{
		pilots:   manyPilots(3),
		airports: []*fixed.Airport{sessionAirport("EGLL")},
		firs:     []*fixed.FIR{sessionFIR("EGTT")},
	}
	sess := newSession(src, londonSessionRect(), 5.0, false, nil)

	// a cancelled context runs exactly one tick
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sent []sentMessage
	sess.stream(ctx, func(msg UpdateMessage) error {
		sent = append(sent, describe(msg))
		return nil
	})

	want := []sentMessage{
		{objectType: "pilot", setCount: 3},
		{objectType: "airport", setCount: 1},
		{objectType: "fir", setCount: 1},
	}
	if len(sent) != len(want) {
		t.Fatalf("stream sent %d messages, want %d (empties suppressed): %+v", len(sent), len(want), sent)
	}
	for i, got := range sent {
		if got != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got, want[i])
		}
	}

	// nothing changed: the next pass sends nothing at all
	sent = nil
	sess.stream(ctx, func(msg UpdateMessage) error {
		sent = append(sent, describe(msg))
		return nil
	})
	if len(sent) != 0 {
		t.Errorf("unchanged state sent %+v, want nothing", sent)
	}
}

func TestSessionTickDeleteOnDisappear(t *testing.T) {
	src := &fakeSource{pilots: manyPilots(2)}
	sess := newSession(src, londonSessionRect(), 5.0, false, nil)
	sess.tick(context.Background())

	src.pilots = src.pilots[:1]
	var deletes []sentMessage
	for _, msg := range sess.tick(context.Background()) {
		if sm := describe(msg); sm.delCount > 0 {
			deletes = append(deletes, sm)
		}
	}
	if len(deletes) != 1 || deletes[0] != (sentMessage{objectType: "pilot", delCount: 1}) {
		t.Errorf("deletes = %+v, want one pilot delete", deletes)
	}
}

func TestWeatherPreloadIDs(t *testing.T) {
	withWx := sessionAirport("EGKK")
	withWx.Wx = &weather.Info{TS: time.Now().UTC()}

	ids := weatherPreloadIDs([]*fixed.Airport{sessionAirport("EGLL"), withWx})
	if len(ids) != 1 || ids[0] != "EGLL" {
		t.Errorf("preload ids = %v, want [EGLL]", ids)
	}
}

func TestWeatherPreloadOnlyForSetAirports(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// no observation for the requested station: the cache stays
		// cold, so a preload per tick would call again
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := &fakeSource{
		airports: []*fixed.Airport{sessionAirport("EGLL")},
		wx:       weather.NewManager(srv.URL, 30*time.Minute),
	}
	sess := newSession(src, londonSessionRect(), 5.0, true, nil)
	ctx := context.Background()

	sess.tick(ctx)
	waitFor(t, func() bool { return calls.Load() == 1 })

	// unchanged airport: not part of the set diff, no new preload
	sess.tick(ctx)
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("weather api calls = %d, want 1 (preload follows the set diff)", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func londonSessionRect() geom.Rect {
	return geom.NewRect(-1.0, 51.0, 0.5, 52.0)
}
