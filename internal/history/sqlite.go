package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and if needed creates) the history database at
// the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS match_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		candidate_count INTEGER NOT NULL DEFAULT 0,
		result_count INTEGER NOT NULL DEFAULT 0,
		top_score REAL NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_match_runs_patient ON match_runs(patient_id);
	CREATE INDEX IF NOT EXISTS idx_match_runs_created ON match_runs(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a new match run.
func (s *SQLiteStore) Save(ctx context.Context, run *MatchRun) error {
	now := time.Now()
	run.CreatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO match_runs (
			patient_id, candidate_count, result_count, top_score, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.PatientID,
		run.CandidateCount,
		run.ResultCount,
		run.TopScore,
		run.DurationMS,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	run.ID = id

	return nil
}

// ListByPatient returns a patient's runs with pagination, newest first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, candidate_count, result_count, top_score, duration_ms, created_at
		FROM match_runs
		WHERE patient_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM match_runs").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
