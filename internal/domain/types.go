// Package domain contains the core business entities for the clinic
// matching service: users, questionnaire tests, answers, and the
// affinity results produced by the matching engine.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TestCode identifies one of the fixed intake questionnaires. The two
// matching tests are created once and referenced by code everywhere.
type TestCode string

const (
	PatientMatchingTest      TestCode = "PATIENT_MATCHING"
	PsychologistMatchingTest TestCode = "PSYCHOLOGIST_MATCHING"
)

// Role represents a user's role in the clinic.
type Role string

const (
	RolePatient      Role = "PATIENT"
	RolePsychologist Role = "PSYCHOLOGIST"
	RoleAdmin        Role = "ADMIN"
)

// QuestionType determines how many answers a question admits.
type QuestionType string

const (
	// QuestionSingle expects exactly one selected option.
	QuestionSingle QuestionType = "SINGLE"
	// QuestionMultiple admits zero or more selected options, stored as
	// one QuestionAnswer row per selection.
	QuestionMultiple QuestionType = "MULTIPLE"
)

// Sentinel errors surfaced by repositories and services.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidRole  = errors.New("invalid role")
	ErrTestNotTaken = errors.New("matching test not taken")
)

// User is a clinic account. Age is optional; the intake form does not
// require it and the population criterion deactivates without it.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Age       *int      `json:"age,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Test is a questionnaire definition.
type Test struct {
	ID   uuid.UUID `json:"id"`
	Code TestCode  `json:"code"`
	Name string    `json:"name"`
}

// Question belongs to exactly one test. Position is 1-based and is the
// only stable identifier the matching engine uses; the two matching
// questionnaires are paired by position convention, not by shared IDs.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	TestID   uuid.UUID    `json:"test_id"`
	Position int          `json:"position"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
}

// AnswerOption is a selectable option of a question. Value is an
// optional numeric score used by psychometric tests; the matching
// engine only reads labels.
type AnswerOption struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Label      string    `json:"label"`
	Value      *float64  `json:"value,omitempty"`
}

// QuestionAnswer is a user's response to a single question option.
// MULTIPLE questions produce one row per selected option. The question
// position and type are denormalized onto the row so the engine can
// group answers without a second lookup.
type QuestionAnswer struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	QuestionID       uuid.UUID    `json:"question_id"`
	QuestionPosition int          `json:"question_position"`
	QuestionType     QuestionType `json:"question_type"`
	OptionLabel      string       `json:"option_label"`
	OptionValue      *float64     `json:"option_value,omitempty"`
}

// IsValid validates the role value.
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RolePsychologist, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsValid validates the question type.
func (qt QuestionType) IsValid() bool {
	switch qt {
	case QuestionSingle, QuestionMultiple:
		return true
	default:
		return false
	}
}
