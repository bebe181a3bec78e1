package track

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

func openTestStore(t *testing.T, retention time.Duration) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "tracks.db"), retention)
	if err != nil {
		t.Fatalf("OpenSQLite error: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testPilot(lastUpdated time.Time) *vatsim.Pilot {
	return &vatsim.Pilot{
		CID:         1234567,
		Callsign:    "AAL1",
		Position:    geom.Point{Lat: 51.5, Lng: -0.45},
		Altitude:    35000,
		Heading:     270,
		Groundspeed: 450,
		LogonTime:   time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC),
		LastUpdated: lastUpdated,
	}
}

func TestStoreAppendsPoints(t *testing.T) {
	s := openTestStore(t, 12*time.Hour)
	ctx := context.Background()

	p := testPilot(time.Now().UTC().Truncate(time.Second))
	if err := s.Store(ctx, p); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	p2 := testPilot(p.LastUpdated.Add(15 * time.Second))
	p2.Position.Lng = -0.5
	p2.Altitude = 35100
	if err := s.Store(ctx, p2); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	points, err := s.GetTrackPoints(ctx, p)
	if err != nil {
		t.Fatalf("GetTrackPoints error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].TS >= points[1].TS {
		t.Errorf("points not ordered by ts: %d >= %d", points[0].TS, points[1].TS)
	}
	if points[1].Alt != 35100 {
		t.Errorf("points[1].Alt = %d, want 35100", points[1].Alt)
	}

	tracks, pts, err := s.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters error: %v", err)
	}
	if tracks != 1 || pts != 2 {
		t.Errorf("Counters = (%d, %d), want (1, 2)", tracks, pts)
	}
}

func TestNewLogonStartsNewTrack(t *testing.T) {
	s := openTestStore(t, 12*time.Hour)
	ctx := context.Background()

	p := testPilot(time.Now().UTC())
	if err := s.Store(ctx, p); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	relogged := testPilot(p.LastUpdated.Add(time.Minute))
	relogged.LogonTime = relogged.LogonTime.Add(time.Hour)
	if err := s.Store(ctx, relogged); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	tracks, _, err := s.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters error: %v", err)
	}
	if tracks != 2 {
		t.Errorf("tracks = %d, want 2 (logon time changes the code)", tracks)
	}

	points, err := s.GetTrackPoints(ctx, p)
	if err != nil {
		t.Fatalf("GetTrackPoints error: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("old track has %d points, want 1", len(points))
	}
}

func TestGetTrackPointsUnknownPilot(t *testing.T) {
	s := openTestStore(t, 12*time.Hour)
	points, err := s.GetTrackPoints(context.Background(), testPilot(time.Now().UTC()))
	if err != nil {
		t.Fatalf("GetTrackPoints error: %v", err)
	}
	if points != nil {
		t.Errorf("points = %v, want nil for an unknown pilot", points)
	}
}

func TestCleanupDropsStaleTracks(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	stale := testPilot(time.Now().UTC().Add(-2 * time.Hour))
	if err := s.Store(ctx, stale); err != nil {
		t.Fatalf("Store error: %v", err)
	}
	fresh := testPilot(time.Now().UTC())
	fresh.LogonTime = fresh.LogonTime.Add(time.Hour)
	if err := s.Store(ctx, fresh); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	if err := s.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup error: %v", err)
	}

	tracks, points, err := s.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters error: %v", err)
	}
	if tracks != 1 || points != 1 {
		t.Errorf("after cleanup Counters = (%d, %d), want (1, 1)", tracks, points)
	}
	if got, _ := s.GetTrackPoints(ctx, stale); got != nil {
		t.Errorf("stale track should be gone, got %v", got)
	}
}

func TestUserRoundtrip(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	u, err := NewUser("pilot@example.com", "hunter22")
	if err != nil {
		t.Fatalf("NewUser error: %v", err)
	}
	if err := s.SaveUser(ctx, u); err != nil {
		t.Fatalf("SaveUser error: %v", err)
	}

	found, err := s.FindUserByEmail(ctx, "pilot@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail error: %v", err)
	}
	if found == nil {
		t.Fatal("user not found after save")
	}
	if !found.CheckPassword("hunter22") {
		t.Errorf("CheckPassword should accept the original password")
	}
	if found.CheckPassword("wrong") {
		t.Errorf("CheckPassword should reject a wrong password")
	}

	missing, err := s.FindUserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail error: %v", err)
	}
	if missing != nil {
		t.Errorf("unknown email should return nil, got %+v", missing)
	}
}
