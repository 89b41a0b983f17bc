// Package history persists a record of every matching computation for
// clinic auditing. Two backends are provided: PostgreSQL for the full
// deployment and embedded SQLite for single-clinic installs.
package history

import (
	"context"
	"time"
)

// MatchRun is one recorded matching computation.
type MatchRun struct {
	ID             int64     `json:"id"`
	PatientID      string    `json:"patient_id"`
	CandidateCount int       `json:"candidate_count"`
	ResultCount    int       `json:"result_count"`
	TopScore       float64   `json:"top_score"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists and retrieves match runs.
type Store interface {
	// Save stores a run and fills in its ID and CreatedAt.
	Save(ctx context.Context, run *MatchRun) error

	// ListByPatient returns a patient's runs, newest first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRun, error)

	// Count returns the total number of recorded runs.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying database handle.
	Close() error
}
