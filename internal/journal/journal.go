// Package journal provides SQLite-based persistence of forksync run
// history. The journal is an observer: sync results are recorded after the
// fact and a journal failure never fails a run.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run outcomes.
const (
	OutcomeSynced   = "synced"
	OutcomeNoUpdate = "no-update"
	OutcomeFailed   = "failed"
)

// Record is one tool run.
type Record struct {
	ID              int64
	Timestamp       time.Time
	Task            string
	UpstreamVersion string
	LocalVersion    string
	Outcome         string
	Detail          string
}

// Journal represents the SQLite run journal.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records one run.
func (j *Journal) Append(rec *Record) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res, err := j.db.Exec(`
		INSERT INTO runs (timestamp, task, upstream_version, local_version, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339), rec.Task, rec.UpstreamVersion, rec.LocalVersion, rec.Outcome, rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append run: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// Recent returns the latest runs, newest first.
func (j *Journal) Recent(limit int) ([]*Record, error) {
	rows, err := j.db.Query(`
		SELECT id, timestamp, task, upstream_version, local_version, outcome, detail
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.Task, &rec.UpstreamVersion, &rec.LocalVersion, &rec.Outcome, &rec.Detail); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339, ts)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
