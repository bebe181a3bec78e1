// Package track persists per-flight position tracks. Two backends
// share the same schema shape: Postgres for deployments and a local
// sqlite file when no DSN is configured.
package track

import (
	"context"
	"time"

	"github.com/vatsimnerd/camden-server/internal/config"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

// Point is one stored track position.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Alt int     `json:"alt"`
	Hdg int     `json:"hdg"`
	GS  int     `json:"gs"`
	TS  int64   `json:"ts"`
}

// Store is the persistence interface of the track subsystem.
type Store interface {
	// Store finds or creates the pilot's track and appends the
	// current position.
	Store(ctx context.Context, pilot *vatsim.Pilot) error
	// GetTrackPoints returns all points of the pilot's track ordered
	// by timestamp.
	GetTrackPoints(ctx context.Context, pilot *vatsim.Pilot) ([]Point, error)
	// Counters returns (track count, track point count).
	Counters(ctx context.Context) (int64, int64, error)
	// Cleanup deletes tracks whose most recent point is older than
	// the retention window, together with their points.
	Cleanup(ctx context.Context) error

	// SaveUser upserts a user record by email.
	SaveUser(ctx context.Context, u *User) error
	// FindUserByEmail returns the stored user or nil.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	Close()
}

// Open picks a backend from the configuration: Postgres when a DSN is
// given, the local sqlite file otherwise.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.Track.PostgresDSN != "" {
		return OpenPostgres(ctx, cfg.Track.PostgresDSN, cfg.Track.Retention)
	}
	return OpenSQLite(cfg.Track.SQLitePath, cfg.Track.Retention)
}

func pointFromPilot(p *vatsim.Pilot) Point {
	return Point{
		Lat: p.Position.Lat,
		Lng: p.Position.Lng,
		Alt: p.Altitude,
		Hdg: p.Heading,
		GS:  p.Groundspeed,
		TS:  p.LastUpdated.Unix(),
	}
}

func retentionCutoff(retention time.Duration) int64 {
	return time.Now().Add(-retention).Unix()
}
