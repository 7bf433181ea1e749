// Package capdb records capture sessions in a sqlite database so runs on
// different pins, boards and firmware builds can be compared later.
package capdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by GetSession for an unknown ID.
var ErrNotFound = errors.New("capture session not found")

type DB struct {
	*sql.DB
}

// Session summarises one capture.
type Session struct {
	ID             string
	Source         string // serial port or input file
	OutputPath     string
	StartedAt      time.Time
	ByteCount      int
	HealthOK       bool
	ShannonBits    float64
	MinEntropyBits float64
	Histogram      []int // LSB index counts 0..7 then zero bytes
}

// Open opens (creating if needed) the database at path and applies pragmas.
// Call MigrateUp before use.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return &DB{db}, nil
}

// RecordSession inserts s, assigning a new ID if s.ID is empty.
func (db *DB) RecordSession(s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	hist, err := json.Marshal(s.Histogram)
	if err != nil {
		return fmt.Errorf("failed to encode histogram: %w", err)
	}

	_, err = db.Exec(`INSERT INTO capture_sessions
		(session_id, source, output_path, started_unix, byte_count, health_ok, shannon_bits, min_entropy_bits, histogram_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.OutputPath, s.StartedAt.Unix(), s.ByteCount, s.HealthOK,
		s.ShannonBits, s.MinEntropyBits, string(hist))
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

const sessionColumns = `session_id, source, output_path, started_unix, byte_count, health_ok, shannon_bits, min_entropy_bits, histogram_json`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		s       Session
		started int64
		hist    string
	)
	if err := row.Scan(&s.ID, &s.Source, &s.OutputPath, &started, &s.ByteCount, &s.HealthOK,
		&s.ShannonBits, &s.MinEntropyBits, &hist); err != nil {
		return nil, err
	}
	s.StartedAt = time.Unix(started, 0)
	if err := json.Unmarshal([]byte(hist), &s.Histogram); err != nil {
		return nil, fmt.Errorf("session %s: bad histogram: %w", s.ID, err)
	}
	return &s, nil
}

// GetSession returns the session with the given ID.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`SELECT `+sessionColumns+` FROM capture_sessions WHERE session_id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, err
}

// ListSessions returns up to limit sessions, newest first. limit <= 0 returns all.
func (db *DB) ListSessions(limit int) ([]*Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM capture_sessions ORDER BY started_unix DESC, session_id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
