package domain

import (
	"math"

	"github.com/google/uuid"
)

// MinAffinityScore is the hard floor applied to every computed affinity
// score. No candidate with a completed questionnaire ever scores below
// it, which keeps every completed candidate visible in the ranking.
const MinAffinityScore = 0.01

// FilterPenaltyFactor is applied to the affinity score of candidates
// who fail an absolute eligibility filter. Failing a filter penalizes
// rather than excludes.
const FilterPenaltyFactor = 0.3

// MatchResult is one ranked entry of a matching computation. It is a
// transient per-request value, never persisted as an entity.
type MatchResult struct {
	PsychologistID   uuid.UUID `json:"psychologist_id"`
	PsychologistName string    `json:"psychologist_name,omitempty"`
	AffinityScore    float64   `json:"affinity_score"`
	MatchPercentage  int       `json:"match_percentage"`
	PassedFilters    bool      `json:"passed_filters"`
}

// ClampScore bounds a raw affinity score to [MinAffinityScore, 1.0].
// All floor and clamp decisions in the engine go through this helper.
func ClampScore(score float64) float64 {
	return math.Max(MinAffinityScore, math.Min(1.0, score))
}

// MatchPercentage converts an affinity score to the 1-100 integer shown
// to patients.
func MatchPercentage(score float64) int {
	return int(math.Round(score * 100))
}
