// Package storage persists the zone collection and dashboard settings
// in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/crowdcount/dashboard-server/internal/zones"
)

const schema = `
CREATE TABLE IF NOT EXISTS zones (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    name   TEXT NOT NULL,
    points TEXT NOT NULL
);

-- simple key/value settings (global)
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const defaultThreshold = 20

// Store wraps the SQLite database behind the zone and settings queries.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema
// and the default alert threshold exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT INTO settings(key, value) VALUES('alert_threshold', ?)
		 ON CONFLICT(key) DO NOTHING`,
		strconv.Itoa(defaultThreshold),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListZones returns all zones ordered by id, points decoded from their
// stored JSON.
func (s *Store) ListZones() ([]zones.Zone, error) {
	rows, err := s.db.Query(`SELECT id, name, points FROM zones ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []zones.Zone
	for rows.Next() {
		var z zones.Zone
		var raw string
		if err := rows.Scan(&z.ID, &z.Name, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &z.Points); err != nil {
			// A corrupt row renders as an empty zone rather than
			// poisoning the whole list.
			z.Points = nil
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// CreateZone inserts a zone and returns its assigned id.
func (s *Store) CreateZone(name string, points zones.Points) (int64, error) {
	raw, err := json.Marshal(points)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`INSERT INTO zones(name, points) VALUES(?, ?)`, name, string(raw))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateZone replaces a zone's name and points. Returns false when the
// id does not exist.
func (s *Store) UpdateZone(id int64, name string, points zones.Points) (bool, error) {
	raw, err := json.Marshal(points)
	if err != nil {
		return false, err
	}
	res, err := s.db.Exec(`UPDATE zones SET name = ?, points = ? WHERE id = ?`, name, string(raw), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteZone removes a zone. Returns false when the id does not exist;
// repeat deletes are a clean no-op miss.
func (s *Store) DeleteZone(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Threshold returns the persisted alert threshold.
func (s *Store) Threshold() (int, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'alert_threshold'`).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultThreshold, nil
	}
	if err != nil {
		return 0, err
	}
	thr, err := strconv.Atoi(value)
	if err != nil {
		return defaultThreshold, nil
	}
	return thr, nil
}

// SetThreshold persists a new alert threshold.
func (s *Store) SetThreshold(threshold int) error {
	_, err := s.db.Exec(
		`INSERT INTO settings(key, value) VALUES('alert_threshold', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(threshold),
	)
	return err
}
