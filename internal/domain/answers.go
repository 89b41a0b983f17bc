package domain

import "strings"

// AnswerSet groups a user's questionnaire answers by question position.
// A MULTIPLE question maps to several entries under the same position.
// All matching-engine lookups go through this type so the position
// convention stays in one place.
type AnswerSet map[int][]QuestionAnswer

// GroupAnswersByPosition builds an AnswerSet from a flat answer list.
func GroupAnswersByPosition(answers []QuestionAnswer) AnswerSet {
	set := make(AnswerSet, len(answers))
	for _, a := range answers {
		set[a.QuestionPosition] = append(set[a.QuestionPosition], a)
	}
	return set
}

// Empty reports whether the set holds no answers at all.
func (s AnswerSet) Empty() bool {
	return len(s) == 0
}

// Answered reports whether the question at the given position has at
// least one recorded answer.
func (s AnswerSet) Answered(position int) bool {
	return len(s[position]) > 0
}

// First returns the first answer label at a position. For SINGLE
// questions this is the selected option; for MULTIPLE it is the first
// recorded row. The second return is false when unanswered.
func (s AnswerSet) First(position int) (string, bool) {
	answers := s[position]
	if len(answers) == 0 {
		return "", false
	}
	return answers[0].OptionLabel, true
}

// Labels returns all answer labels at a position, in recorded order.
func (s AnswerSet) Labels(position int) []string {
	answers := s[position]
	if len(answers) == 0 {
		return nil
	}
	labels := make([]string, 0, len(answers))
	for _, a := range answers {
		labels = append(labels, a.OptionLabel)
	}
	return labels
}

// NormalizedLabels returns lowercased, trimmed answer labels at a
// position. The matching engine compares Spanish option labels and
// questionnaire text case varies between test revisions.
func (s AnswerSet) NormalizedLabels(position int) []string {
	labels := s.Labels(position)
	for i, l := range labels {
		labels[i] = NormalizeLabel(l)
	}
	return labels
}

// Contains reports whether any answer at a position contains the given
// keyword, comparing normalized text.
func (s AnswerSet) Contains(position int, keyword string) bool {
	keyword = NormalizeLabel(keyword)
	for _, label := range s.NormalizedLabels(position) {
		if strings.Contains(label, keyword) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any answer at a position contains any of
// the keywords.
func (s AnswerSet) ContainsAny(position int, keywords ...string) bool {
	for _, kw := range keywords {
		if s.Contains(position, kw) {
			return true
		}
	}
	return false
}

// NormalizeLabel lowercases and trims an answer label for comparison.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
