package storage

import (
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pitwall/vtms/core/telemetry"
)

// SQLiteStore persists telemetry records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single writer keeps sqlite happy on the gateway's SD card.
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS telemetry (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source TEXT NOT NULL,
        name TEXT NOT NULL,
        value TEXT NOT NULL,
        ts INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_telemetry_source_name_ts ON telemetry(source, name, ts);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts the record. A zero time is stamped with the current time.
func (s *SQLiteStore) Append(r telemetry.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO telemetry (source, name, value, ts) VALUES (?, ?, ?, ?)`,
		r.Source, r.Name, r.Value, ts.UnixMilli())
	return err
}

// Query returns matching records, newest first.
func (s *SQLiteStore) Query(f telemetry.Filter) ([]telemetry.Record, error) {
	q := `SELECT id, source, name, value, ts FROM telemetry`
	var conds []string
	var args []any
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if f.Name != "" {
		conds = append(conds, "name = ?")
		args = append(args, f.Name)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY ts DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []telemetry.Record
	for rows.Next() {
		var rec telemetry.Record
		var ts int64
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Name, &rec.Value, &ts); err != nil {
			return nil, err
		}
		rec.Time = time.UnixMilli(ts).UTC()
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
