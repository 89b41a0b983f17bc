package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clinic-matching-server/internal/domain"
)

// AnswerRepository handles questionnaire answer persistence.
type AnswerRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAnswerRepository creates a new answer repository.
func NewAnswerRepository(db *pgxpool.Pool, logger *logrus.Logger) *AnswerRepository {
	return &AnswerRepository{
		db:  db,
		log: logger,
	}
}

// ListByUserAndTest returns every answer a user gave to a test, ordered
// by question position. The question position, type and the selected
// option's label and value are joined onto each row so the matching
// engine needs no further lookups.
func (r *AnswerRepository) ListByUserAndTest(ctx context.Context, userID uuid.UUID, code domain.TestCode) ([]domain.QuestionAnswer, error) {
	query := `
		SELECT qa.id, qa.user_id, qa.question_id, q.position, q.type, o.label, o.value
		FROM question_answers qa
		JOIN questions q ON q.id = qa.question_id
		JOIN tests t ON t.id = q.test_id
		JOIN answer_options o ON o.id = qa.option_id
		WHERE qa.user_id = $1 AND t.code = $2
		ORDER BY q.position, o.label`

	rows, err := r.db.Query(ctx, query, userID, code)
	if err != nil {
		return nil, fmt.Errorf("listing answers for user %s test %s: %w", userID, code, err)
	}
	defer rows.Close()

	var answers []domain.QuestionAnswer
	for rows.Next() {
		var a domain.QuestionAnswer
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.QuestionID,
			&a.QuestionPosition,
			&a.QuestionType,
			&a.OptionLabel,
			&a.OptionValue,
		); err != nil {
			return nil, fmt.Errorf("scanning answer row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating answer rows: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"test_code":    code,
		"answer_count": len(answers),
	}).Debug("Loaded questionnaire answers")

	return answers, nil
}
