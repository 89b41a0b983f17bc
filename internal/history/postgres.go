package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL through database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection and ensures the match_runs
// table exists.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// OpenPostgresStore opens a new connection from a DSN and wraps it.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS match_runs (
		id BIGSERIAL PRIMARY KEY,
		patient_id TEXT NOT NULL,
		candidate_count INTEGER NOT NULL DEFAULT 0,
		result_count INTEGER NOT NULL DEFAULT 0,
		top_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_match_runs_patient ON match_runs(patient_id);
	CREATE INDEX IF NOT EXISTS idx_match_runs_created ON match_runs(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a new match run.
func (s *PostgresStore) Save(ctx context.Context, run *MatchRun) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO match_runs (
			patient_id, candidate_count, result_count, top_score, duration_ms
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		run.PatientID,
		run.CandidateCount,
		run.ResultCount,
		run.TopScore,
		run.DurationMS,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// ListByPatient returns a patient's runs with pagination, newest first.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, candidate_count, result_count, top_score, duration_ms, created_at
		FROM match_runs
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*MatchRun
	for rows.Next() {
		run := &MatchRun{}
		if err := rows.Scan(
			&run.ID, &run.PatientID, &run.CandidateCount,
			&run.ResultCount, &run.TopScore, &run.DurationMS, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Count returns the total number of recorded runs.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM match_runs").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
