package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserReader provides read access to clinic users.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]User, error)
}

// TestReader provides read access to questionnaire definitions.
type TestReader interface {
	GetByCode(ctx context.Context, code TestCode) (*Test, error)
	ListQuestionsByCode(ctx context.Context, code TestCode) ([]Question, error)
}

// AnswerReader returns all answers a user gave to a test, grouped by
// question through AnswerSet on the caller side.
type AnswerReader interface {
	ListByUserAndTest(ctx context.Context, userID uuid.UUID, code TestCode) ([]QuestionAnswer, error)
}

// Matcher computes the ranked psychologist list for a patient.
type Matcher interface {
	ComputeMatching(ctx context.Context, patientID uuid.UUID) ([]MatchResult, error)
}
