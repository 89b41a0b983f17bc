package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinic-matching-server/internal/domain"
)

// MatchingEngine evaluates patient/psychologist compatibility from the
// two matching questionnaires. It holds no state beyond the criterion
// table and is safe for concurrent use.
type MatchingEngine struct {
	logger   *logrus.Logger
	criteria []affinityCriterion
}

// affinityCriterion is one weighted compatibility criterion.
type affinityCriterion struct {
	Name     string
	Evaluate func(in scoreInput) criterionScore
}

// scoreInput carries the read-only inputs of a single pair evaluation.
type scoreInput struct {
	patient        *domain.User
	patientAnswers domain.AnswerSet
	psychAnswers   domain.AnswerSet
}

// criterionScore is the outcome of one criterion. When Applied is
// false the criterion contributes to neither the numerator nor the
// denominator; the pair simply lacks the information to judge it.
type criterionScore struct {
	Applied bool
	Credit  float64
	Weight  float64
}

func notApplied() criterionScore {
	return criterionScore{}
}

func applied(weight, fraction float64) criterionScore {
	return criterionScore{Applied: true, Credit: weight * fraction, Weight: weight}
}

// NewMatchingEngine creates the engine with its fixed criterion table.
func NewMatchingEngine(logger *logrus.Logger) *MatchingEngine {
	e := &MatchingEngine{logger: logger}
	e.initializeCriteria()
	return e
}

// initializeCriteria registers the weighted affinity criteria. Order
// only affects debug logging; every criterion is independent.
func (e *MatchingEngine) initializeCriteria() {
	e.addCriterion("clinical_experience", evaluateClinicalExperience)
	e.addCriterion("work_areas_overlap", evaluateWorkAreasOverlap)
	e.addCriterion("complexity_fit", evaluateComplexityFit)
	e.addCriterion("therapeutic_style", evaluateTherapeuticStyle)
	e.addCriterion("population_age_fit", evaluatePopulationAgeFit)
	e.addCriterion("crisis_handling", evaluateCrisisHandling)
	e.addCriterion("gender_preference", evaluateGenderPreference)
	e.addCriterion("medication_experience", evaluateMedicationExperience)

	e.logger.WithField("criterion_count", len(e.criteria)).Info("Initialized affinity criteria")
}

func (e *MatchingEngine) addCriterion(name string, evaluate func(in scoreInput) criterionScore) {
	e.criteria = append(e.criteria, affinityCriterion{Name: name, Evaluate: evaluate})
}

// CalculateAffinityScore computes the normalized [0.01, 1.0] affinity
// between a patient and a psychologist. Each applicable criterion adds
// its weight to the maximum possible score and its credited fraction to
// the total; the result is total/max with the hard floor applied. A
// pair with no applicable criteria scores the floor directly.
func (e *MatchingEngine) CalculateAffinityScore(patient *domain.User, patientAnswers, psychAnswers domain.AnswerSet) float64 {
	in := scoreInput{patient: patient, patientAnswers: patientAnswers, psychAnswers: psychAnswers}

	var total, maxPossible float64
	for _, c := range e.criteria {
		score := c.Evaluate(in)
		if !score.Applied {
			continue
		}
		total += score.Credit
		maxPossible += score.Weight

		e.logger.WithFields(logrus.Fields{
			"criterion": c.Name,
			"credit":    score.Credit,
			"weight":    score.Weight,
		}).Debug("Evaluated affinity criterion")
	}

	if maxPossible == 0 {
		return domain.MinAffinityScore
	}
	return domain.ClampScore(total / maxPossible)
}

// evaluateClinicalExperience scores years of clinical practice. The
// weight rises to 0.15 for high-need patients (strong affectation or a
// long-running problem) and the credit table hardens with it: a junior
// psychologist earns nothing from a high-need patient but partial
// credit from a standard one.
func evaluateClinicalExperience(in scoreInput) criterionScore {
	experience, ok := in.psychAnswers.First(psychPosExperience)
	if !ok {
		return notApplied()
	}

	highNeed := in.patientAnswers.ContainsAny(patientPosAffectation, kwVeryAffected, kwQuiteAffected) ||
		in.patientAnswers.ContainsAny(patientPosDuration, kwOverSixMonths, kwYears)

	label := domain.NormalizeLabel(experience)
	if highNeed {
		switch {
		case strings.Contains(label, kwOverSevenYears):
			return applied(0.15, 1.0)
		case strings.Contains(label, kwThreeToSeven):
			return applied(0.15, 0.7)
		case strings.Contains(label, kwOneToThree):
			return applied(0.15, 0.4)
		default:
			return applied(0.15, 0.0)
		}
	}
	switch {
	case strings.Contains(label, kwOverSevenYears):
		return applied(0.10, 1.0)
	case strings.Contains(label, kwThreeToSeven):
		return applied(0.10, 0.8)
	case strings.Contains(label, kwOneToThree):
		return applied(0.10, 0.6)
	default:
		return applied(0.10, 0.3)
	}
}

// evaluateWorkAreasOverlap credits the fraction of the patient's areas
// of concern covered by the psychologist's areas of expertise. Labels
// overlap when either contains the other, which tolerates the slightly
// different phrasing of the two questionnaires.
func evaluateWorkAreasOverlap(in scoreInput) criterionScore {
	patientAreas := in.patientAnswers.NormalizedLabels(patientPosWorkAreas)
	psychAreas := in.psychAnswers.NormalizedLabels(psychPosWorkAreas)
	if len(patientAreas) == 0 || len(psychAreas) == 0 {
		return notApplied()
	}

	matched := 0
	for _, p := range patientAreas {
		for _, q := range psychAreas {
			if strings.Contains(q, p) || strings.Contains(p, q) {
				matched++
				break
			}
		}
	}
	return applied(0.20, float64(matched)/float64(len(patientAreas)))
}

// evaluateComplexityFit scores the psychologist's preferred case
// complexity against the patient's situation. A complex patient pairs
// badly with a mild-cases-only profile and perfectly with complex or
// adaptive ones; uncomplicated patients fit nearly everyone.
func evaluateComplexityFit(in scoreInput) criterionScore {
	preference, ok := in.psychAnswers.First(psychPosComplexity)
	if !ok {
		return notApplied()
	}

	complex := in.patientAnswers.Contains(patientPosAffectation, kwVeryAffected) ||
		in.patientAnswers.ContainsAny(patientPosDuration, kwOverSixMonths, kwYears)

	label := domain.NormalizeLabel(preference)
	if complex {
		switch {
		case strings.Contains(label, kwMildCases):
			return applied(0.10, 0.0)
		case strings.Contains(label, kwComplexCases), strings.Contains(label, kwAdaptive):
			return applied(0.10, 1.0)
		default:
			return applied(0.10, 0.7)
		}
	}
	return applied(0.10, 0.8)
}

// evaluateTherapeuticStyle compares the practical/exploratory axis.
// A balanced style on either side is a near-universal fit; an exact
// axis match beats it, any other combination earns half credit.
func evaluateTherapeuticStyle(in scoreInput) criterionScore {
	psychStyle, psychOK := in.psychAnswers.First(psychPosStyle)
	patientStyle, patientOK := in.patientAnswers.First(patientPosStyle)
	if !psychOK || !patientOK {
		return notApplied()
	}

	ps := domain.NormalizeLabel(psychStyle)
	pt := domain.NormalizeLabel(patientStyle)
	switch {
	case strings.Contains(ps, kwBalanced) || strings.Contains(pt, kwBalanced):
		return applied(0.12, 0.9)
	case strings.Contains(ps, kwPractical) && strings.Contains(pt, kwPractical):
		return applied(0.12, 1.0)
	case strings.Contains(ps, kwExploratory) && strings.Contains(pt, kwExploratory):
		return applied(0.12, 1.0)
	default:
		return applied(0.12, 0.5)
	}
}

// evaluatePopulationAgeFit checks the psychologist's treated age
// ranges against the patient's age. Only active when the patient
// recorded an age; an all-ages profile always fits.
func evaluatePopulationAgeFit(in scoreInput) criterionScore {
	ageRange, ok := in.psychAnswers.First(psychPosAgeRange)
	if !ok || in.patient == nil || in.patient.Age == nil {
		return notApplied()
	}

	label := domain.NormalizeLabel(ageRange)
	if strings.Contains(label, kwAllAges) || ageBracketMatches(label, *in.patient.Age) {
		return applied(0.08, 1.0)
	}
	return applied(0.08, 0.3)
}

// ageBracketMatches reports whether an age-range label covers the
// patient's age. The questionnaire brackets are 18-30, 30-50 and +50;
// the label check looks for the bracket bounds rather than parsing.
func ageBracketMatches(label string, age int) bool {
	switch {
	case age >= 18 && age < 30:
		return strings.Contains(label, "18") && strings.Contains(label, "30")
	case age >= 30 && age <= 50:
		return strings.Contains(label, "30") && strings.Contains(label, "50")
	case age > 50:
		return strings.Contains(label, "50") && !strings.Contains(label, "30")
	default:
		return false
	}
}

// evaluateCrisisHandling only activates for patients reporting a
// recent breakup or loss; it scores the psychologist's self-reported
// comfort with acute crises.
func evaluateCrisisHandling(in scoreInput) criterionScore {
	breakup, ok := in.patientAnswers.First(patientPosRecentBreakup)
	if !ok || domain.NormalizeLabel(breakup) != kwYes {
		return notApplied()
	}
	comfort, ok := in.psychAnswers.First(psychPosCrisis)
	if !ok {
		return notApplied()
	}

	label := domain.NormalizeLabel(comfort)
	switch {
	case strings.Contains(label, kwHigh):
		return applied(0.10, 1.0)
	case strings.Contains(label, kwMedium):
		return applied(0.10, 0.7)
	default:
		return applied(0.10, 0.3)
	}
}

// evaluateGenderPreference only activates when the patient stated an
// explicit therapist-gender preference. All-or-nothing credit.
func evaluateGenderPreference(in scoreInput) criterionScore {
	preference, ok := in.patientAnswers.First(patientPosGenderPref)
	if !ok || domain.NormalizeLabel(preference) == kwIndifferent {
		return notApplied()
	}
	gender, ok := in.psychAnswers.First(psychPosGender)
	if !ok {
		return notApplied()
	}

	if domain.NormalizeLabel(preference) == domain.NormalizeLabel(gender) {
		return applied(0.05, 1.0)
	}
	return applied(0.05, 0.0)
}

// evaluateMedicationExperience only activates for medicated patients;
// it scores how routinely the psychologist works alongside psychiatric
// medication.
func evaluateMedicationExperience(in scoreInput) criterionScore {
	medicated, ok := in.patientAnswers.First(patientPosMedication)
	if !ok || domain.NormalizeLabel(medicated) != kwYes {
		return notApplied()
	}
	experience, ok := in.psychAnswers.First(psychPosMedication)
	if !ok {
		return notApplied()
	}

	label := domain.NormalizeLabel(experience)
	switch {
	case strings.Contains(label, kwUsually):
		return applied(0.10, 1.0)
	case strings.Contains(label, kwSomeCases):
		return applied(0.10, 0.7)
	default:
		return applied(0.10, 0.0)
	}
}
