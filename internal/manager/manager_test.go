package manager

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vatsimnerd/camden-server/internal/config"
	"github.com/vatsimnerd/camden-server/internal/fixed"
	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/track"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.Track.Enabled = false

	m := New(context.Background(), cfg)

	egll := &fixed.Airport{
		ICAO:     "EGLL",
		IATA:     "LHR",
		Name:     "London Heathrow",
		Position: geom.Point{Lat: 51.47, Lng: -0.45},
		FIRID:    "EGTT",
		Runways:  map[string]fixed.Runway{},
	}
	kjfk := &fixed.Airport{
		ICAO:     "KJFK",
		IATA:     "JFK",
		Name:     "John F Kennedy Intl",
		Position: geom.Point{Lat: 40.64, Lng: -73.78},
		FIRID:    "KZNY",
		Runways:  map[string]fixed.Runway{},
	}
	egtt := &fixed.FIR{
		ICAO:   "EGTT",
		Name:   "London",
		Prefix: "LON",
		Boundaries: fixed.Boundaries{
			ID:  "EGTT",
			Min: geom.Point{Lat: 48.9, Lng: -8.2},
			Max: geom.Point{Lat: 55.3, Lng: 3.0},
		},
		Controllers: map[string]*vatsim.Controller{},
	}

	m.fixed = fixed.NewData(
		[]*fixed.Airport{egll, kjfk},
		[]*fixed.FIR{egtt},
		nil,
		nil,
	)
	m.fixed.Airports(func(a *fixed.Airport) {
		m.airports2d.Insert(geom.PointObject{ID: a.CompoundID(), Point: a.Position})
	})
	m.fixed.FIRs(func(f *fixed.FIR) {
		m.firs2d.Insert(geom.RectObject{ID: f.ICAO, Rect: geom.Rect{
			SouthWest: f.Boundaries.Min,
			NorthEast: f.Boundaries.Max,
		}})
	})
	return m
}

func testSnapshotPilot(callsign string, lat, lng float64) vatsim.Pilot {
	return vatsim.Pilot{
		CID:         1000000,
		Name:        "Test Pilot",
		Callsign:    callsign,
		Position:    geom.Point{Lat: lat, Lng: lng},
		Altitude:    35000,
		Groundspeed: 450,
		LogonTime:   time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC),
		LastUpdated: time.Now().UTC(),
	}
}

func testController(callsign string, facility vatsim.Facility) vatsim.Controller {
	return vatsim.Controller{
		CID:      2000000,
		Name:     "Test Controller",
		Callsign: callsign,
		Freq:     128075,
		Facility: facility,
	}
}

func londonViewport() geom.Rect {
	return geom.NewRect(-1.0, 51.0, 0.5, 52.0)
}

func TestProcessSnapshotPilots(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	st := newLoopState()

	m.processSnapshot(ctx, &vatsim.Snapshot{
		UpdatedAt: time.Now().UTC(),
		Pilots: []vatsim.Pilot{
			testSnapshotPilot("BAW1", 51.5, -0.4),
			testSnapshotPilot("AAL100", 40.7, -73.9),
		},
	}, st)

	if got := len(m.GetAllPilots()); got != 2 {
		t.Fatalf("pilots online = %d, want 2", got)
	}
	inLondon := m.GetPilots(londonViewport())
	if len(inLondon) != 1 || inLondon[0].Callsign != "BAW1" {
		t.Fatalf("london viewport = %+v, want just BAW1", inLondon)
	}

	// next tick: BAW1 moved out of the viewport, AAL100 disappeared
	m.processSnapshot(ctx, &vatsim.Snapshot{
		UpdatedAt: time.Now().UTC(),
		Pilots: []vatsim.Pilot{
			testSnapshotPilot("BAW1", 45.0, 5.0),
		},
	}, st)

	if got := len(m.GetAllPilots()); got != 1 {
		t.Fatalf("pilots online = %d, want 1 after removal", got)
	}
	if got := m.GetPilots(londonViewport()); len(got) != 0 {
		t.Errorf("london viewport = %+v, want empty after the move", got)
	}
	if m.GetPilotByCallsign("AAL100") != nil {
		t.Errorf("AAL100 should be gone")
	}
	if m.pilots2d.Len() != 1 {
		t.Errorf("pilots2d len = %d, want 1 (no stale tree entries)", m.pilots2d.Len())
	}
}

func TestProcessSnapshotControllers(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	st := newLoopState()

	m.processSnapshot(ctx, &vatsim.Snapshot{
		UpdatedAt: time.Now().UTC(),
		Controllers: []vatsim.Controller{
			testController("EGLL_TWR", vatsim.FacilityTower),
			testController("LON_S_CTR", vatsim.FacilityRadar),
			testController("OBS_1", vatsim.FacilityReject),
		},
	}, st)

	airports := m.GetAirports(londonViewport(), false)
	if len(airports) != 1 || airports[0].ICAO != "EGLL" {
		t.Fatalf("staffed airports = %+v, want just EGLL", airports)
	}
	if airports[0].Controllers.Tower == nil {
		t.Errorf("EGLL tower slot should be filled")
	}

	firs := m.GetFIRs(londonViewport())
	if len(firs) != 1 || firs[0].ICAO != "EGTT" {
		t.Fatalf("staffed firs = %+v, want just EGTT", firs)
	}
	if _, ok := firs[0].Controllers["LON_S_CTR"]; !ok {
		t.Errorf("LON_S_CTR should be attached to EGTT")
	}
	if len(st.controllers) != 2 {
		t.Errorf("working set = %d controllers, want 2 (observer rejected)", len(st.controllers))
	}

	// controllers log off
	m.processSnapshot(ctx, &vatsim.Snapshot{UpdatedAt: time.Now().UTC()}, st)

	if got := m.GetAirports(londonViewport(), false); len(got) != 0 {
		t.Errorf("airports = %+v, want none after controllers left", got)
	}
	if got := m.GetFIRs(londonViewport()); len(got) != 0 {
		t.Errorf("firs = %+v, want none after controllers left", got)
	}
}

func TestUnstaffedObjectsInvisible(t *testing.T) {
	m := newTestManager(t)

	if got := m.GetAirports(londonViewport(), false); len(got) != 0 {
		t.Errorf("airports = %+v, want none without controllers", got)
	}
	if got := m.GetAllAirports(false); len(got) != 0 {
		t.Errorf("all airports = %+v, want none without controllers", got)
	}
	if got := m.GetFIRs(londonViewport()); len(got) != 0 {
		t.Errorf("firs = %+v, want none without controllers", got)
	}
	if got := m.GetAllFIRs(); len(got) != 0 {
		t.Errorf("all firs = %+v, want none without controllers", got)
	}
}

func TestFindAirport(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if m.FindAirport(ctx, "EGLL", false) == nil {
		t.Errorf("EGLL should resolve by icao")
	}
	if m.FindAirport(ctx, "EGLL:LHR", false) == nil {
		t.Errorf("EGLL:LHR should resolve by compound id")
	}
	if m.FindAirport(ctx, "XXXX", false) != nil {
		t.Errorf("XXXX should not resolve")
	}
}

func TestWrappedViewportQuery(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	st := newLoopState()

	m.processSnapshot(ctx, &vatsim.Snapshot{
		UpdatedAt: time.Now().UTC(),
		Pilots: []vatsim.Pilot{
			testSnapshotPilot("ANZ2", -37.0, 178.5),
			testSnapshotPilot("ANZ3", -37.0, -178.5),
			testSnapshotPilot("BAW1", 51.5, -0.4),
		},
	}, st)

	// viewport across the antimeridian catches both sides
	got := m.GetPilots(geom.NewRect(175.0, -40.0, -175.0, -30.0))
	if len(got) != 2 {
		t.Fatalf("wrapped viewport = %d pilots, want 2", len(got))
	}
	for _, p := range got {
		if p.Callsign == "BAW1" {
			t.Errorf("BAW1 should be outside the wrapped viewport")
		}
	}
}

// slowTrackStore simulates a track backend with a fixed per-write
// latency.
type slowTrackStore struct {
	delay time.Duration
}

func (s *slowTrackStore) Store(ctx context.Context, p *vatsim.Pilot) error {
	time.Sleep(s.delay)
	return nil
}

func (s *slowTrackStore) GetTrackPoints(ctx context.Context, p *vatsim.Pilot) ([]track.Point, error) {
	return nil, nil
}

func (s *slowTrackStore) Counters(ctx context.Context) (int64, int64, error) {
	return 0, 0, nil
}

func (s *slowTrackStore) Cleanup(ctx context.Context) error { return nil }

func (s *slowTrackStore) SaveUser(ctx context.Context, u *track.User) error { return nil }

func (s *slowTrackStore) FindUserByEmail(ctx context.Context, email string) (*track.User, error) {
	return nil, nil
}

func (s *slowTrackStore) Close() {}

func TestReadersNotBlockedByTrackWrites(t *testing.T) {
	m := newTestManager(t)
	store := &slowTrackStore{delay: 100 * time.Millisecond}
	m.tracks = store

	snap := &vatsim.Snapshot{UpdatedAt: time.Now().UTC()}
	for i := 0; i < 5; i++ {
		snap.Pilots = append(snap.Pilots,
			testSnapshotPilot(fmt.Sprintf("BAW%d", i), 51.0+float64(i)*0.1, -0.4))
	}

	done := make(chan struct{})
	go func() {
		m.processSnapshot(context.Background(), snap, newLoopState())
		close(done)
	}()

	// let the pass get underway, then read while it is still writing
	time.Sleep(150 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("pilots pass finished too early to observe contention")
	default:
	}

	start := time.Now()
	m.GetAllPilots()
	blocked := time.Since(start)
	<-done

	// the read must wait for at most one upsert, not for the rest of
	// the pass's store writes
	if blocked > store.delay {
		t.Errorf("GetAllPilots blocked for %v, want under %v", blocked, store.delay)
	}
}

func TestStaleSnapshotSkipped(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	st := newLoopState()

	now := time.Now().UTC()
	m.processSnapshot(ctx, &vatsim.Snapshot{
		UpdatedAt: now,
		Pilots:    []vatsim.Pilot{testSnapshotPilot("BAW1", 51.5, -0.4)},
	}, st)

	if st.dataUpdatedAt != now.Unix() {
		t.Fatalf("dataUpdatedAt = %d, want %d", st.dataUpdatedAt, now.Unix())
	}

	// the run loop drops snapshots whose timestamp did not advance
	older := &vatsim.Snapshot{UpdatedAt: now.Add(-time.Minute)}
	if older.UpdatedAt.Unix() > st.dataUpdatedAt {
		t.Fatalf("older snapshot should not pass the freshness check")
	}
}
