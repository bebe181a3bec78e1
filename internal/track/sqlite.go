package track

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

// SQLiteStore is the single-file fallback backend.
type SQLiteStore struct {
	db        *sql.DB
	retention time.Duration
}

// OpenSQLite opens (or creates) the database file and ensures the
// schema.
func OpenSQLite(path string, retention time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite handles one writer at a time
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, retention: retention}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	log.WithField("path", path).Info("track store opened")
	return s, nil
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		code        TEXT NOT NULL UNIQUE,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS track_points (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		track_id  INTEGER NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
		lat       REAL NOT NULL,
		lng       REAL NOT NULL,
		alt       INTEGER NOT NULL,
		hdg       INTEGER NOT NULL,
		gs        INTEGER NOT NULL,
		ts        INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_track_points_track_ts ON track_points(track_id, ts);

	CREATE TABLE IF NOT EXISTS users (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		ext_id       TEXT NOT NULL DEFAULT '',
		email        TEXT NOT NULL UNIQUE,
		passwd_hash  TEXT NOT NULL
	);

	PRAGMA foreign_keys = ON;
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Store(ctx context.Context, pilot *vatsim.Pilot) error {
	var trackID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tracks (code) VALUES (?)
		ON CONFLICT (code) DO UPDATE SET code = excluded.code
		RETURNING id`,
		pilot.TrackCode(),
	).Scan(&trackID)
	if err != nil {
		return fmt.Errorf("upsert track: %w", err)
	}

	pt := pointFromPilot(pilot)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO track_points (track_id, lat, lng, alt, hdg, gs, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trackID, pt.Lat, pt.Lng, pt.Alt, pt.Hdg, pt.GS, pt.TS,
	)
	if err != nil {
		return fmt.Errorf("insert track point: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTrackPoints(ctx context.Context, pilot *vatsim.Pilot) ([]Point, error) {
	var trackID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tracks WHERE code = ?`, pilot.TrackCode(),
	).Scan(&trackID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find track: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT lat, lng, alt, hdg, gs, ts
		FROM track_points WHERE track_id = ? ORDER BY ts`,
		trackID,
	)
	if err != nil {
		return nil, fmt.Errorf("query track points: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var pt Point
		if err := rows.Scan(&pt.Lat, &pt.Lng, &pt.Alt, &pt.Hdg, &pt.GS, &pt.TS); err != nil {
			return nil, fmt.Errorf("scan track point: %w", err)
		}
		points = append(points, pt)
	}
	return points, rows.Err()
}

func (s *SQLiteStore) Counters(ctx context.Context) (int64, int64, error) {
	var tracks, points int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&tracks); err != nil {
		return 0, 0, fmt.Errorf("count tracks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_points`).Scan(&points); err != nil {
		return 0, 0, fmt.Errorf("count track points: %w", err)
	}
	return tracks, points, nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	cutoff := retentionCutoff(s.retention)

	// sqlite builds may run without foreign_keys, delete points explicitly
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM track_points WHERE track_id IN (
			SELECT t.id FROM tracks t
			LEFT JOIN track_points p ON p.track_id = t.id
			GROUP BY t.id
			HAVING COALESCE(MAX(p.ts), 0) < ?
		)`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("cleanup track points: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM tracks WHERE id NOT IN (
			SELECT DISTINCT track_id FROM track_points
		)`,
	)
	if err != nil {
		return fmt.Errorf("cleanup tracks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (ext_id, email, passwd_hash) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET ext_id = excluded.ext_id, passwd_hash = excluded.passwd_hash`,
		u.ExtID, u.Email, u.PasswdHash,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, ext_id, email, passwd_hash FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.ExtID, &u.Email, &u.PasswdHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
