// Package store persists jobs and their roll action history in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the rolltrackd job store.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    customer        TEXT NOT NULL,
    ticket          TEXT NOT NULL,
    inlay_type      TEXT,
    quantity        INTEGER NOT NULL,
    labels_per_roll INTEGER NOT NULL,
    printer_name    TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    completed       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS roll_actions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id      INTEGER NOT NULL REFERENCES jobs(id),
    roll_number INTEGER NOT NULL,
    action      TEXT NOT NULL,
    note        TEXT,
    timestamp   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_completed ON jobs(completed);
CREATE INDEX IF NOT EXISTS idx_roll_actions_job ON roll_actions(job_id, roll_number);
`

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("store: job not found")

// Store represents the SQLite job store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// AddJob inserts a new job and returns its ID. A zero CreatedAt is filled
// with the current time.
func (s *Store) AddJob(j Job) (int64, error) {
	created := j.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	result, err := s.db.Exec(`
		INSERT INTO jobs (customer, ticket, inlay_type, quantity, labels_per_roll, printer_name, created_at, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Customer, j.Ticket, j.InlayType, j.Quantity, j.LabelsPerRoll, j.PrinterName,
		created.Format(time.RFC3339), boolToInt(j.Completed),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	return id, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(id int64) (*Job, error) {
	row := s.db.QueryRow(`
		SELECT id, customer, ticket, inlay_type, quantity, labels_per_roll, printer_name, created_at, completed
		FROM jobs WHERE id = ?`, id,
	)

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// GetActiveJobs returns all jobs not yet marked complete.
func (s *Store) GetActiveJobs() ([]Job, error) {
	return s.jobsByCompletion(false)
}

// GetCompletedJobs returns all jobs marked complete.
func (s *Store) GetCompletedJobs() ([]Job, error) {
	return s.jobsByCompletion(true)
}

func (s *Store) jobsByCompletion(completed bool) ([]Job, error) {
	rows, err := s.db.Query(`
		SELECT id, customer, ticket, inlay_type, quantity, labels_per_roll, printer_name, created_at, completed
		FROM jobs WHERE completed = ? ORDER BY created_at ASC`, boolToInt(completed),
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, nil
}

// UpdateJob rewrites the editable fields of a job.
func (s *Store) UpdateJob(id int64, j Job) error {
	result, err := s.db.Exec(`
		UPDATE jobs
		SET customer = ?, ticket = ?, inlay_type = ?, quantity = ?, labels_per_roll = ?, printer_name = ?
		WHERE id = ?`,
		j.Customer, j.Ticket, j.InlayType, j.Quantity, j.LabelsPerRoll, j.PrinterName, id,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}

	return nil
}

// UpdateJobCompletion sets the completed flag on a job.
func (s *Store) UpdateJobCompletion(id int64, completed bool) error {
	result, err := s.db.Exec(`UPDATE jobs SET completed = ? WHERE id = ?`, boolToInt(completed), id)
	if err != nil {
		return fmt.Errorf("update job completion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}

	return nil
}

// LogRollAction appends one audit record for a roll. Roll number 0 marks a
// job-level action.
func (s *Store) LogRollAction(jobID int64, rollNumber int, action, note string) error {
	_, err := s.db.Exec(`
		INSERT INTO roll_actions (job_id, roll_number, action, note, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		jobID, rollNumber, action, note, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("log roll action: %w", err)
	}
	return nil
}

// GetRollActions returns the audit trail for a job in insertion order.
func (s *Store) GetRollActions(jobID int64) ([]RollAction, error) {
	rows, err := s.db.Query(`
		SELECT id, job_id, roll_number, action, note, timestamp
		FROM roll_actions WHERE job_id = ? ORDER BY id ASC`, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query roll actions: %w", err)
	}
	defer rows.Close()

	var actions []RollAction
	for rows.Next() {
		var a RollAction
		var note sql.NullString
		var ts string
		if err := rows.Scan(&a.ID, &a.JobID, &a.RollNumber, &a.Action, &note, &ts); err != nil {
			return nil, fmt.Errorf("scan roll action: %w", err)
		}
		a.Note = note.String
		a.Timestamp, _ = time.Parse(time.RFC3339, ts)
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roll actions: %w", err)
	}

	return actions, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*Job, error) {
	var j Job
	var inlay sql.NullString
	var created string
	var completed int

	if err := r.Scan(&j.ID, &j.Customer, &j.Ticket, &inlay, &j.Quantity, &j.LabelsPerRoll, &j.PrinterName, &created, &completed); err != nil {
		return nil, err
	}

	j.InlayType = inlay.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, created)
	j.Completed = completed != 0

	return &j, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
