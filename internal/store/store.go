// Package store persists weather observations in SQLite and answers
// latest-by-station and latest-in-window queries for the fee calculator.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertSQL = `INSERT INTO observations
		(station_name, wmo_code, air_temperature, wind_speed, phenomenon, ts)
		VALUES (?, ?, ?, ?, ?, ?)`

	latestSQL = `SELECT id, station_name, wmo_code, air_temperature, wind_speed, phenomenon, ts
		FROM observations WHERE wmo_code = ?
		ORDER BY ts DESC, id DESC LIMIT 1`

	latestInWindowSQL = `SELECT id, station_name, wmo_code, air_temperature, wind_speed, phenomenon, ts
		FROM observations WHERE wmo_code = ? AND ts >= ? AND ts < ?
		ORDER BY ts DESC, id DESC LIMIT 1`
)

// Open opens (creating if needed) the SQLite database at path. A non-empty
// dsn overrides the path entirely.
func Open(path, dsn string) (*sql.DB, error) {
	if dsn == "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		// busy_timeout avoids "database is locked" when the ingest cycle
		// and request handlers overlap; WAL lets them overlap at all.
		dsn = fmt.Sprintf("file:%s?%s", path, strings.Join([]string{
			"_busy_timeout=5000",
			"_journal_mode=WAL",
		}, "&"))
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Store is the observation store. It implements domain.WeatherSource.
//
// In front of the latest-by-station SQL query it keeps an in-memory cache of
// the newest observation per station, refreshed on insert and on read-miss.
// Most fee requests carry no reference instant, so the hot path never
// touches SQLite once the first ingest cycle has run.
type Store struct {
	db *sql.DB

	mu     sync.RWMutex
	latest map[int]domain.Observation
}

// New creates a Store over an open database and applies the schema.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{
		db:     db,
		latest: make(map[int]domain.Observation),
	}, nil
}

// InsertMany persists a batch of observations in one transaction, in the
// given order. Every record is visible to queries once InsertMany returns.
func (s *Store) InsertMany(ctx context.Context, observations []domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	inserted := make([]domain.Observation, 0, len(observations))
	for _, obs := range observations {
		res, err := tx.ExecContext(ctx, insertSQL,
			obs.StationName, obs.WMOCode, obs.AirTemperature, obs.WindSpeed, obs.Phenomenon, obs.Timestamp)
		if err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
		if obs.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert observation id: %w", err)
		}
		inserted = append(inserted, obs)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	s.mu.Lock()
	for _, obs := range inserted {
		s.cacheLocked(obs)
	}
	s.mu.Unlock()
	return nil
}

// LatestForStation returns the observation with the greatest timestamp for
// the station, ties broken by the greater row id. Returns
// domain.ErrObservationNotFound when the store has no row for the station.
func (s *Store) LatestForStation(ctx context.Context, wmoCode int) (domain.Observation, error) {
	s.mu.RLock()
	obs, ok := s.latest[wmoCode]
	s.mu.RUnlock()
	if ok {
		return obs, nil
	}

	obs, err := s.queryOne(ctx, latestSQL, wmoCode)
	if err != nil {
		return domain.Observation{}, err
	}

	s.mu.Lock()
	s.cacheLocked(obs)
	s.mu.Unlock()
	return obs, nil
}

// LatestInWindow returns the newest observation for the station with
// start <= ts < end, ties broken by the greater row id. Returns
// domain.ErrObservationNotFound when no row qualifies.
func (s *Store) LatestInWindow(ctx context.Context, wmoCode int, start, end int64) (domain.Observation, error) {
	return s.queryOne(ctx, latestInWindowSQL, wmoCode, start, end)
}

// Clear purges all observations. Testing only.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	s.mu.Lock()
	s.latest = make(map[int]domain.Observation)
	s.mu.Unlock()
	return nil
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (domain.Observation, error) {
	var obs domain.Observation
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&obs.ID, &obs.StationName, &obs.WMOCode,
		&obs.AirTemperature, &obs.WindSpeed, &obs.Phenomenon, &obs.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Observation{}, domain.ErrObservationNotFound
	}
	if err != nil {
		return domain.Observation{}, fmt.Errorf("query observation: %w", err)
	}
	return obs, nil
}

// cacheLocked replaces the cached latest observation for a station when the
// candidate is at least as new. Equal timestamps favour the greater id, so
// the cache and the SQL tie-break agree even if feed timestamps regress.
func (s *Store) cacheLocked(obs domain.Observation) {
	cached, ok := s.latest[obs.WMOCode]
	if !ok || obs.Timestamp > cached.Timestamp ||
		(obs.Timestamp == cached.Timestamp && obs.ID >= cached.ID) {
		s.latest[obs.WMOCode] = obs
	}
}
