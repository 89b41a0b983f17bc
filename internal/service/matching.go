package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clinic-matching-server/internal/domain"
	"github.com/clinic-matching-server/internal/history"
)

// ResultCache caches computed rankings per patient. Cache failures are
// logged and swallowed; matching never depends on the cache.
type ResultCache interface {
	GetMatching(ctx context.Context, patientID uuid.UUID) ([]domain.MatchResult, bool, error)
	SetMatching(ctx context.Context, patientID uuid.UUID, results []domain.MatchResult) error
}

// MatchingService orchestrates a full matching run: load the patient,
// walk every active psychologist, score each pair and rank the results.
type MatchingService struct {
	logger  *logrus.Logger
	users   domain.UserReader
	tests   domain.TestReader
	answers domain.AnswerReader
	engine  *MatchingEngine
	cache   ResultCache
	history history.Store
}

// NewMatchingService creates the orchestrator. cache and historyStore
// are optional; pass nil to disable them.
func NewMatchingService(
	logger *logrus.Logger,
	users domain.UserReader,
	tests domain.TestReader,
	answers domain.AnswerReader,
	engine *MatchingEngine,
	cache ResultCache,
	historyStore history.Store,
) *MatchingService {
	return &MatchingService{
		logger:  logger,
		users:   users,
		tests:   tests,
		answers: answers,
		engine:  engine,
		cache:   cache,
		history: historyStore,
	}
}

// ComputeMatching returns every verified psychologist ranked by affinity
// with the given patient, highest first. Psychologists who have not
// completed their matching questionnaire are skipped; a patient who has
// not completed theirs gets an empty ranking, not an error.
func (s *MatchingService) ComputeMatching(ctx context.Context, patientID uuid.UUID) ([]domain.MatchResult, error) {
	started := time.Now()

	if s.cache != nil {
		cached, found, err := s.cache.GetMatching(ctx, patientID)
		if err != nil {
			s.logger.WithError(err).Warn("Match cache read failed, recomputing")
		} else if found {
			s.logger.WithFields(logrus.Fields{
				"patient_id":   patientID,
				"result_count": len(cached),
			}).Debug("Returning cached matching results")
			return cached, nil
		}
	}

	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if patient.Role != domain.RolePatient {
		return nil, fmt.Errorf("user %s: %w", patientID, domain.ErrInvalidRole)
	}

	// A missing test definition is a hard failure, distinct from a
	// patient who simply has not taken an existing test.
	for _, code := range []domain.TestCode{domain.PatientMatchingTest, domain.PsychologistMatchingTest} {
		if _, err := s.tests.GetByCode(ctx, code); err != nil {
			return nil, fmt.Errorf("failed to load test %s: %w", code, err)
		}
	}

	patientAnswers, err := s.loadAnswerSet(ctx, patientID, domain.PatientMatchingTest)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient answers: %w", err)
	}
	if patientAnswers.Empty() {
		s.logger.WithError(domain.ErrTestNotTaken).WithField("patient_id", patientID).
			Info("Returning empty matching")
		return []domain.MatchResult{}, nil
	}

	psychologists, err := s.users.ListByRole(ctx, domain.RolePsychologist)
	if err != nil {
		return nil, fmt.Errorf("failed to list psychologists: %w", err)
	}
	sort.Slice(psychologists, func(i, j int) bool {
		return psychologists[i].ID.String() < psychologists[j].ID.String()
	})

	results := make([]domain.MatchResult, 0, len(psychologists))
	candidateSets := make(map[uuid.UUID]domain.AnswerSet, len(psychologists))

	for i := range psychologists {
		psych := &psychologists[i]

		psychAnswers, err := s.loadAnswerSet(ctx, psych.ID, domain.PsychologistMatchingTest)
		if err != nil {
			// A shortened ranking is worse than no ranking.
			return nil, fmt.Errorf("failed to load answers for psychologist %s: %w", psych.ID, err)
		}
		if psychAnswers.Empty() {
			continue
		}
		candidateSets[psych.ID] = psychAnswers

		score := s.engine.CalculateAffinityScore(patient, patientAnswers, psychAnswers)
		passed := s.engine.PassesAbsoluteFilters(patientAnswers, psychAnswers)
		if !passed {
			score *= domain.FilterPenaltyFactor
		}
		score = domain.ClampScore(score)

		results = append(results, domain.MatchResult{
			PsychologistID:   psych.ID,
			PsychologistName: psych.Name,
			AffinityScore:    score,
			MatchPercentage:  domain.MatchPercentage(score),
			PassedFilters:    passed,
		})
	}

	if len(results) == 0 && len(psychologists) > 0 {
		for i := range psychologists {
			if _, ok := candidateSets[psychologists[i].ID]; !ok {
				continue
			}
			results = append(results, domain.MatchResult{
				PsychologistID:   psychologists[i].ID,
				PsychologistName: psychologists[i].Name,
				AffinityScore:    domain.MinAffinityScore,
				MatchPercentage:  domain.MatchPercentage(domain.MinAffinityScore),
				PassedFilters:    false,
			})
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AffinityScore > results[j].AffinityScore
	})

	elapsed := time.Since(started)
	s.logger.WithFields(logrus.Fields{
		"patient_id":      patientID,
		"candidate_count": len(psychologists),
		"result_count":    len(results),
		"duration_ms":     elapsed.Milliseconds(),
	}).Info("Computed matching")

	s.recordRun(ctx, patientID, len(psychologists), results, elapsed)

	if s.cache != nil {
		if err := s.cache.SetMatching(ctx, patientID, results); err != nil {
			s.logger.WithError(err).Warn("Match cache write failed")
		}
	}

	return results, nil
}

func (s *MatchingService) loadAnswerSet(ctx context.Context, userID uuid.UUID, code domain.TestCode) (domain.AnswerSet, error) {
	answers, err := s.answers.ListByUserAndTest(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	return domain.GroupAnswersByPosition(answers), nil
}

// recordRun persists a history row on a best-effort basis.
func (s *MatchingService) recordRun(ctx context.Context, patientID uuid.UUID, candidates int, results []domain.MatchResult, elapsed time.Duration) {
	if s.history == nil {
		return
	}

	var topScore float64
	if len(results) > 0 {
		topScore = results[0].AffinityScore
	}

	run := &history.MatchRun{
		PatientID:      patientID.String(),
		CandidateCount: candidates,
		ResultCount:    len(results),
		TopScore:       topScore,
		DurationMS:     elapsed.Milliseconds(),
	}
	if err := s.history.Save(ctx, run); err != nil {
		s.logger.WithError(err).Warn("Failed to record match run")
	}
}
