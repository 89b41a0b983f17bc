package repository

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clinic-matching-server/internal/domain"
)

const questionCacheSize = 32

// TestRepository handles questionnaire definition persistence. Test
// definitions are effectively immutable after seeding, so question
// lists are served from an in-process LRU cache.
type TestRepository struct {
	db        *pgxpool.Pool
	log       *logrus.Logger
	questions *lru.Cache[domain.TestCode, []domain.Question]
}

// NewTestRepository creates a new test repository.
func NewTestRepository(db *pgxpool.Pool, logger *logrus.Logger) (*TestRepository, error) {
	cache, err := lru.New[domain.TestCode, []domain.Question](questionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating question cache: %w", err)
	}

	return &TestRepository{
		db:        db,
		log:       logger,
		questions: cache,
	}, nil
}

// GetByCode retrieves a test definition by its code.
func (r *TestRepository) GetByCode(ctx context.Context, code domain.TestCode) (*domain.Test, error) {
	query := `
		SELECT id, code, name
		FROM tests
		WHERE code = $1`

	var test domain.Test
	err := r.db.QueryRow(ctx, query, code).Scan(
		&test.ID,
		&test.Code,
		&test.Name,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting test %s: %w", code, err)
	}

	return &test, nil
}

// ListQuestionsByCode returns a test's questions ordered by position,
// read through the LRU cache.
func (r *TestRepository) ListQuestionsByCode(ctx context.Context, code domain.TestCode) ([]domain.Question, error) {
	if cached, ok := r.questions.Get(code); ok {
		return cached, nil
	}

	query := `
		SELECT q.id, q.test_id, q.position, q.type, q.text
		FROM questions q
		JOIN tests t ON t.id = q.test_id
		WHERE t.code = $1
		ORDER BY q.position`

	rows, err := r.db.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("listing questions for %s: %w", code, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Position, &q.Type, &q.Text); err != nil {
			return nil, fmt.Errorf("scanning question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating question rows: %w", err)
	}

	if len(questions) == 0 {
		// Distinguish an unknown code from a seeded test with no
		// questions yet.
		if _, err := r.GetByCode(ctx, code); err != nil {
			return nil, err
		}
	}

	r.questions.Add(code, questions)
	r.log.WithFields(logrus.Fields{
		"test_code":      code,
		"question_count": len(questions),
	}).Debug("Cached test questions")

	return questions, nil
}
