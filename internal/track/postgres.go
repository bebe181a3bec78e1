package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

// PostgresStore keeps tracks in PostgreSQL behind a pgx pool.
type PostgresStore struct {
	pool      *pgxpool.Pool
	retention time.Duration
}

// OpenPostgres opens the pool and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string, retention time.Duration) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, retention: retention}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id          BIGSERIAL PRIMARY KEY,
		code        TEXT NOT NULL UNIQUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_tracks_code ON tracks(code);

	CREATE TABLE IF NOT EXISTS track_points (
		id        BIGSERIAL PRIMARY KEY,
		track_id  BIGINT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
		lat       DOUBLE PRECISION NOT NULL,
		lng       DOUBLE PRECISION NOT NULL,
		alt       INTEGER NOT NULL,
		hdg       INTEGER NOT NULL,
		gs        INTEGER NOT NULL,
		ts        BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_track_points_track_ts ON track_points(track_id, ts);

	CREATE TABLE IF NOT EXISTS users (
		id           BIGSERIAL PRIMARY KEY,
		ext_id       TEXT NOT NULL DEFAULT '',
		email        TEXT NOT NULL UNIQUE,
		passwd_hash  TEXT NOT NULL
	);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Store(ctx context.Context, pilot *vatsim.Pilot) error {
	var trackID int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tracks (code) VALUES ($1)
		ON CONFLICT (code) DO UPDATE SET code = EXCLUDED.code
		RETURNING id`,
		pilot.TrackCode(),
	).Scan(&trackID)
	if err != nil {
		return fmt.Errorf("upsert track: %w", err)
	}

	pt := pointFromPilot(pilot)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO track_points (track_id, lat, lng, alt, hdg, gs, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		trackID, pt.Lat, pt.Lng, pt.Alt, pt.Hdg, pt.GS, pt.TS,
	)
	if err != nil {
		return fmt.Errorf("insert track point: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTrackPoints(ctx context.Context, pilot *vatsim.Pilot) ([]Point, error) {
	var trackID int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM tracks WHERE code = $1`, pilot.TrackCode(),
	).Scan(&trackID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find track: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT lat, lng, alt, hdg, gs, ts
		FROM track_points WHERE track_id = $1 ORDER BY ts`,
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

func (s *PostgresStore) Counters(ctx context.Context) (int64, int64, error) {
	var tracks, points int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&tracks); err != nil {
		return 0, 0, fmt.Errorf("count tracks: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM track_points`).Scan(&points); err != nil {
		return 0, 0, fmt.Errorf("count track points: %w", err)
	}
	return tracks, points, nil
}

func (s *PostgresStore) Cleanup(ctx context.Context) error {
	// points are removed by the cascade; empty tracks go too
	_, err := s.pool.Exec(ctx, `
		DELETE FROM tracks WHERE id IN (
			SELECT t.id FROM tracks t
			LEFT JOIN track_points p ON p.track_id = t.id
			GROUP BY t.id
			HAVING COALESCE(MAX(p.ts), 0) < $1
		)`,
		retentionCutoff(s.retention),
	)
	if err != nil {
		return fmt.Errorf("cleanup tracks: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, u *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (ext_id, email, passwd_hash) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET ext_id = EXCLUDED.ext_id, passwd_hash = EXCLUDED.passwd_hash`,
		u.ExtID, u.Email, u.PasswdHash,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, ext_id, email, passwd_hash FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.ExtID, &u.Email, &u.PasswdHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
