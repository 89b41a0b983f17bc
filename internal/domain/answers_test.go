package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildAnswers(positions map[int][]string) []QuestionAnswer {
	var answers []QuestionAnswer
	for pos, labels := range positions {
		for _, label := range labels {
			answers = append(answers, QuestionAnswer{
				QuestionPosition: pos,
				OptionLabel:      label,
			})
		}
	}
	return answers
}

func TestGroupAnswersByPosition(t *testing.T) {
	set := GroupAnswersByPosition(buildAnswers(map[int][]string{
		1: {"Terapia individual"},
		8: {"Ansiedad", "Depresión"},
	}))

	assert.False(t, set.Empty())
	assert.True(t, set.Answered(1))
	assert.True(t, set.Answered(8))
	assert.False(t, set.Answered(2))
	assert.Len(t, set[8], 2)
}

func TestAnswerSet_First(t *testing.T) {
	set := GroupAnswersByPosition(buildAnswers(map[int][]string{
		1: {"Terapia individual"},
	}))

	label, ok := set.First(1)
	assert.True(t, ok)
	assert.Equal(t, "Terapia individual", label)

	_, ok = set.First(99)
	assert.False(t, ok)
}

func TestAnswerSet_NormalizedLabels(t *testing.T) {
	set := GroupAnswersByPosition(buildAnswers(map[int][]string{
		14: {"  Español ", "INGLÉS"},
	}))

	assert.Equal(t, []string{"español", "inglés"}, set.NormalizedLabels(14))
	assert.Nil(t, set.NormalizedLabels(2))
}

func TestAnswerSet_Contains(t *testing.T) {
	set := GroupAnswersByPosition(buildAnswers(map[int][]string{
		9:  {"Más de 6 meses"},
		10: {"Muchísimo"},
	}))

	assert.True(t, set.Contains(9, "más de 6 meses"))
	assert.True(t, set.Contains(9, "MÁS DE 6 MESES"))
	assert.False(t, set.Contains(9, "años"))

	assert.True(t, set.ContainsAny(10, "mucho", "muchísimo"))
	// "muchísimo" does not contain the substring "mucho".
	assert.False(t, set.Contains(10, "mucho"))
}

func TestClampScore(t *testing.T) {
	assert.InDelta(t, MinAffinityScore, ClampScore(0), 1e-9)
	assert.InDelta(t, MinAffinityScore, ClampScore(-0.5), 1e-9)
	assert.InDelta(t, 0.5, ClampScore(0.5), 1e-9)
	assert.InDelta(t, 1.0, ClampScore(1.7), 1e-9)
}

func TestMatchPercentage(t *testing.T) {
	assert.Equal(t, 1, MatchPercentage(MinAffinityScore))
	assert.Equal(t, 50, MatchPercentage(0.5))
	assert.Equal(t, 83, MatchPercentage(0.826))
	assert.Equal(t, 100, MatchPercentage(1.0))
}
