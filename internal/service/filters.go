package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinic-matching-server/internal/domain"
)

// PassesAbsoluteFilters evaluates the hard eligibility checks between a
// patient and a candidate psychologist: therapy modality, language
// overlap and schedule overlap. A check with missing data on either
// side is skipped. Failing a filter does not exclude the candidate; the
// orchestrator applies a score penalty instead.
func (e *MatchingEngine) PassesAbsoluteFilters(patientAnswers, psychAnswers domain.AnswerSet) bool {
	if !e.passesModalityFilter(patientAnswers, psychAnswers) {
		e.logger.Debug("Candidate failed modality filter")
		return false
	}
	if !passesOverlapFilter(patientAnswers, patientPosLanguages, psychAnswers, psychPosLanguages) {
		e.logger.Debug("Candidate failed language overlap filter")
		return false
	}
	if !passesOverlapFilter(patientAnswers, patientPosSchedule, psychAnswers, psychPosSchedule) {
		e.logger.Debug("Candidate failed schedule overlap filter")
		return false
	}
	return true
}

// passesModalityFilter checks that the candidate offers the therapy
// modality the patient requested. Minor therapy additionally requires
// the formation-for-minors qualification and more than a year of
// experience with minors.
func (e *MatchingEngine) passesModalityFilter(patientAnswers, psychAnswers domain.AnswerSet) bool {
	requestedLabel, ok := patientAnswers.First(patientPosModality)
	psychModalities := psychAnswers.NormalizedLabels(psychPosModality)
	if !ok || len(psychModalities) == 0 {
		// No modality recorded on one side: insufficient information.
		return true
	}

	requested := domain.NormalizeLabel(requestedLabel)
	if strings.Contains(requested, kwMinor) {
		formation, _ := psychAnswers.First(psychPosMinorFormation)
		if domain.NormalizeLabel(formation) != kwYes {
			return false
		}
		if minorExp, answered := psychAnswers.First(psychPosMinorExperience); answered &&
			strings.Contains(domain.NormalizeLabel(minorExp), kwUnderOneYear) {
			return false
		}
	}

	// The patient questionnaire phrases modalities differently from the
	// psychologist one ("terapia para un menor" vs "terapia
	// infantojuvenil"), so each requested modality maps to the keyword
	// expected on the candidate side.
	var needle string
	switch {
	case strings.Contains(requested, kwIndividual):
		needle = kwIndividual
	case strings.Contains(requested, kwCouple):
		needle = kwCouple
	case strings.Contains(requested, kwMinor):
		needle = kwMinorModality
	default:
		e.logger.WithFields(logrus.Fields{
			"requested_modality": requestedLabel,
		}).Warn("Unrecognized requested modality, skipping modality filter")
		return true
	}

	for _, modality := range psychModalities {
		if strings.Contains(modality, needle) {
			return true
		}
	}
	return false
}

// passesOverlapFilter checks that the two answer sets share at least
// one label at the paired positions. Empty on either side skips the
// check.
func passesOverlapFilter(patientAnswers domain.AnswerSet, patientPos int, psychAnswers domain.AnswerSet, psychPos int) bool {
	patientLabels := patientAnswers.NormalizedLabels(patientPos)
	psychLabels := psychAnswers.NormalizedLabels(psychPos)
	if len(patientLabels) == 0 || len(psychLabels) == 0 {
		return true
	}

	offered := make(map[string]struct{}, len(psychLabels))
	for _, label := range psychLabels {
		offered[label] = struct{}{}
	}
	for _, label := range patientLabels {
		if _, ok := offered[label]; ok {
			return true
		}
	}
	return false
}
