package store

import "time"

// Job is one customer print job. Quantity is partitioned into rolls of
// LabelsPerRoll labels each; the roll breakdown itself is computed in
// memory and never persisted.
type Job struct {
	ID            int64     `json:"id"`
	Customer      string    `json:"customer"`
	Ticket        string    `json:"ticket"`
	InlayType     string    `json:"inlay_type"`
	Quantity      int       `json:"quantity"`
	LabelsPerRoll int       `json:"labels_per_roll"`
	PrinterName   string    `json:"printer_name"`
	CreatedAt     time.Time `json:"created_at"`
	Completed     bool      `json:"completed"`
}

// RollAction is one append-only audit record for a roll. RollNumber 0 is
// used for job-level actions.
type RollAction struct {
	ID         int64     `json:"id"`
	JobID      int64     `json:"job_id"`
	RollNumber int       `json:"roll_number"`
	Action     string    `json:"action"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
