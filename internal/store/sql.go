package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

func init() {
	// modernc's driver registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		city        TEXT NOT NULL,
		country     TEXT NOT NULL DEFAULT '',
		lat         REAL NOT NULL,
		lon         REAL NOT NULL,
		aqi         REAL NOT NULL,
		pm25        REAL,
		pm10        REAL,
		o3          REAL,
		no2         REAL,
		so2         REAL,
		co          REAL,
		temperature REAL,
		humidity    REAL,
		wind_speed  REAL,
		pressure    REAL,
		ts          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_observations_city_ts ON observations (city, ts)`,
	`CREATE TABLE IF NOT EXISTS locations (
		city      TEXT PRIMARY KEY,
		country   TEXT NOT NULL DEFAULT '',
		lat       REAL NOT NULL,
		lon       REAL NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		id          BIGSERIAL PRIMARY KEY,
		city        TEXT NOT NULL,
		country     TEXT NOT NULL DEFAULT '',
		lat         DOUBLE PRECISION NOT NULL,
		lon         DOUBLE PRECISION NOT NULL,
		aqi         DOUBLE PRECISION NOT NULL,
		pm25        DOUBLE PRECISION,
		pm10        DOUBLE PRECISION,
		o3          DOUBLE PRECISION,
		no2         DOUBLE PRECISION,
		so2         DOUBLE PRECISION,
		co          DOUBLE PRECISION,
		temperature DOUBLE PRECISION,
		humidity    DOUBLE PRECISION,
		wind_speed  DOUBLE PRECISION,
		pressure    DOUBLE PRECISION,
		ts          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_observations_city_ts ON observations (city, ts)`,
	`CREATE TABLE IF NOT EXISTS locations (
		city      TEXT PRIMARY KEY,
		country   TEXT NOT NULL DEFAULT '',
		lat       DOUBLE PRECISION NOT NULL,
		lon       DOUBLE PRECISION NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

const observationColumns = `id, city, country, lat, lon, aqi, pm25, pm10, o3, no2, so2, co, temperature, humidity, wind_speed, pressure, ts`

// SQLStore implements airq.Store on top of SQLite or PostgreSQL.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// NewSQLStore opens the database, applies the schema and returns a ready
// store. Supported drivers are "sqlite" (modernc, CGo-free) and "postgres".
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	// modernc's sqlite is effectively single-writer; one pooled connection
	// avoids SQLITE_BUSY and makes :memory: databases behave.
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Open returns the store implementation selected by driver: "memory" for the
// in-process store, anything else goes through database/sql.
func Open(driver, dsn string) (airq.Store, error) {
	if driver == "memory" {
		return NewMemoryStore(), nil
	}
	return NewSQLStore(driver, dsn)
}

func (s *SQLStore) migrate() error {
	schema := sqliteSchema
	if s.driver == "postgres" {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// InsertObservation stores one observation. The caller-assigned timestamp is
// normalized to UTC.
func (s *SQLStore) InsertObservation(ctx context.Context, obs airq.Observation) error {
	query := s.db.Rebind(`
		INSERT INTO observations (
			city, country, lat, lon, aqi,
			pm25, pm10, o3, no2, so2, co,
			temperature, humidity, wind_speed, pressure, ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		obs.City, obs.Country, obs.Lat, obs.Lon, obs.AQI,
		obs.PM25, obs.PM10, obs.O3, obs.NO2, obs.SO2, obs.CO,
		obs.Temp, obs.Humidity, obs.WindSpeed, obs.Pressure, obs.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}

// ObservationsByCity returns all observations for a city between from and to
// (inclusive), ordered by timestamp ascending. City matching ignores case.
func (s *SQLStore) ObservationsByCity(ctx context.Context, city string, from, to time.Time) ([]airq.Observation, error) {
	query := s.db.Rebind(`
		SELECT ` + observationColumns + `
		FROM observations
		WHERE LOWER(city) = LOWER(?) AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`)

	var result []airq.Observation
	if err := s.db.SelectContext(ctx, &result, query, city, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	return result, nil
}

// LatestObservation returns the most recent observation for a city.
func (s *SQLStore) LatestObservation(ctx context.Context, city string) (airq.Observation, error) {
	query := s.db.Rebind(`
		SELECT ` + observationColumns + `
		FROM observations
		WHERE LOWER(city) = LOWER(?)
		ORDER BY ts DESC
		LIMIT 1`)

	var obs airq.Observation
	err := s.db.GetContext(ctx, &obs, query, city)
	if errors.Is(err, sql.ErrNoRows) {
		return airq.Observation{}, airq.ErrNoData
	}
	if err != nil {
		return airq.Observation{}, fmt.Errorf("failed to query latest observation: %w", err)
	}
	return obs, nil
}

// UpsertLocation inserts the location or updates the row with the same city.
func (s *SQLStore) UpsertLocation(ctx context.Context, loc airq.MonitoredLocation) error {
	query := s.db.Rebind(`
		INSERT INTO locations (city, country, lat, lon, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (city) DO UPDATE SET
			country = excluded.country,
			lat = excluded.lat,
			lon = excluded.lon,
			is_active = excluded.is_active`)

	_, err := s.db.ExecContext(ctx, query, loc.City, loc.Country, loc.Lat, loc.Lon, loc.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert location: %w", err)
	}
	return nil
}

// LocationByCity looks a location up by city name, case-insensitively.
func (s *SQLStore) LocationByCity(ctx context.Context, city string) (airq.MonitoredLocation, error) {
	query := s.db.Rebind(`
		SELECT city, country, lat, lon, is_active
		FROM locations
		WHERE LOWER(city) = LOWER(?)`)

	var loc airq.MonitoredLocation
	err := s.db.GetContext(ctx, &loc, query, city)
	if errors.Is(err, sql.ErrNoRows) {
		return airq.MonitoredLocation{}, airq.ErrNoData
	}
	if err != nil {
		return airq.MonitoredLocation{}, fmt.Errorf("failed to query location: %w", err)
	}
	return loc, nil
}

// ListActiveLocations returns all active locations ordered by city name.
func (s *SQLStore) ListActiveLocations(ctx context.Context) ([]airq.MonitoredLocation, error) {
	const query = `
		SELECT city, country, lat, lon, is_active
		FROM locations
		WHERE is_active = TRUE
		ORDER BY city ASC`

	var locs []airq.MonitoredLocation
	if err := s.db.SelectContext(ctx, &locs, query); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locs, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
