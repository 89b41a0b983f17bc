package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-matching-server/internal/domain"
	"github.com/clinic-matching-server/internal/history"
)

type fakeUserReader struct {
	users map[uuid.UUID]domain.User
}

func (f *fakeUserReader) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserReader) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeTestReader struct {
	err error
}

func (f *fakeTestReader) GetByCode(_ context.Context, code domain.TestCode) (*domain.Test, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Test{ID: uuid.New(), Code: code}, nil
}

func (f *fakeTestReader) ListQuestionsByCode(_ context.Context, _ domain.TestCode) ([]domain.Question, error) {
	return nil, f.err
}

type fakeAnswerReader struct {
	answers map[uuid.UUID]map[domain.TestCode][]domain.QuestionAnswer
	errs    map[uuid.UUID]error
}

func (f *fakeAnswerReader) ListByUserAndTest(_ context.Context, userID uuid.UUID, code domain.TestCode) ([]domain.QuestionAnswer, error) {
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	return f.answers[userID][code], nil
}

type fakeHistoryStore struct {
	runs []*history.MatchRun
}

func (f *fakeHistoryStore) Save(_ context.Context, run *history.MatchRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeHistoryStore) ListByPatient(_ context.Context, _ string, _, _ int) ([]*history.MatchRun, error) {
	return f.runs, nil
}

func (f *fakeHistoryStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.runs)), nil
}

func (f *fakeHistoryStore) Close() error { return nil }

type fakeResultCache struct {
	stored map[uuid.UUID][]domain.MatchResult
	hits   int
}

func (f *fakeResultCache) GetMatching(_ context.Context, patientID uuid.UUID) ([]domain.MatchResult, bool, error) {
	results, ok := f.stored[patientID]
	if ok {
		f.hits++
	}
	return results, ok, nil
}

func (f *fakeResultCache) SetMatching(_ context.Context, patientID uuid.UUID, results []domain.MatchResult) error {
	if f.stored == nil {
		f.stored = make(map[uuid.UUID][]domain.MatchResult)
	}
	f.stored[patientID] = results
	return nil
}

// uuidWithPrefix builds deterministic IDs so candidate iteration order
// is predictable in tests.
func uuidWithPrefix(b byte) uuid.UUID {
	var id uuid.UUID
	id[0] = b
	return id
}

func flatAnswers(labels map[int][]string) []domain.QuestionAnswer {
	var out []domain.QuestionAnswer
	for pos, ls := range labels {
		for _, l := range ls {
			out = append(out, domain.QuestionAnswer{QuestionPosition: pos, OptionLabel: l})
		}
	}
	return out
}

func completedPatientAnswers() map[int][]string {
	return map[int][]string{
		patientPosModality:    {"Terapia individual"},
		patientPosWorkAreas:   {"Ansiedad"},
		patientPosAffectation: {"Muchísimo"},
		patientPosLanguages:   {"Español"},
		patientPosSchedule:    {"Mañanas"},
	}
}

func completedPsychAnswers() map[int][]string {
	return map[int][]string{
		psychPosModality:   {"Terapia individual"},
		psychPosExperience: {"> 7 años"},
		psychPosWorkAreas:  {"Ansiedad"},
		psychPosComplexity: {"Me especializo en casos complejos"},
		psychPosLanguages:  {"Español"},
		psychPosSchedule:   {"Mañanas"},
	}
}

func TestMatchingService_ComputeMatching(t *testing.T) {
	patientID := uuidWithPrefix(0x01)
	strongID := uuidWithPrefix(0x10)
	weakID := uuidWithPrefix(0x20)

	newFixture := func() (*fakeUserReader, *fakeAnswerReader) {
		users := &fakeUserReader{users: map[uuid.UUID]domain.User{
			patientID: {ID: patientID, Name: "Ana", Role: domain.RolePatient, Age: intPtr(25)},
			strongID:  {ID: strongID, Name: "Dr. Fuerte", Role: domain.RolePsychologist},
			weakID:    {ID: weakID, Name: "Dr. Débil", Role: domain.RolePsychologist},
		}}
		answers := &fakeAnswerReader{answers: map[uuid.UUID]map[domain.TestCode][]domain.QuestionAnswer{
			patientID: {domain.PatientMatchingTest: flatAnswers(completedPatientAnswers())},
			strongID:  {domain.PsychologistMatchingTest: flatAnswers(completedPsychAnswers())},
			weakID:    {domain.PsychologistMatchingTest: flatAnswers(completedPsychAnswers())},
		}}
		return users, answers
	}

	t.Run("Ranks all completed candidates highest first", func(t *testing.T) {
		users, answers := newFixture()
		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)

		results, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)
		require.Len(t, results, 2)

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].AffinityScore, results[i].AffinityScore)
		}
		for _, r := range results {
			assert.True(t, r.PassedFilters)
			assert.GreaterOrEqual(t, r.AffinityScore, domain.MinAffinityScore)
			assert.LessOrEqual(t, r.AffinityScore, 1.0)
			assert.Equal(t, domain.MatchPercentage(r.AffinityScore), r.MatchPercentage)
		}
	})

	t.Run("Filter failure penalizes but keeps the candidate", func(t *testing.T) {
		users, answers := newFixture()
		weak := completedPsychAnswers()
		weak[psychPosLanguages] = []string{"Francés"}
		answers.answers[weakID][domain.PsychologistMatchingTest] = flatAnswers(weak)

		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)
		results, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)
		require.Len(t, results, 2)

		var strong, penalized *domain.MatchResult
		for i := range results {
			switch results[i].PsychologistID {
			case strongID:
				strong = &results[i]
			case weakID:
				penalized = &results[i]
			}
		}
		require.NotNil(t, strong)
		require.NotNil(t, penalized)

		assert.True(t, strong.PassedFilters)
		assert.False(t, penalized.PassedFilters)
		assert.InDelta(t, strong.AffinityScore*domain.FilterPenaltyFactor, penalized.AffinityScore, 1e-9)
		assert.Equal(t, strongID, results[0].PsychologistID)
	})

	t.Run("Skips candidates without a completed questionnaire", func(t *testing.T) {
		users, answers := newFixture()
		answers.answers[weakID] = nil

		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)
		results, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, strongID, results[0].PsychologistID)
	})

	t.Run("Patient without a completed questionnaire gets an empty ranking", func(t *testing.T) {
		users, answers := newFixture()
		answers.answers[patientID] = nil

		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)
		results, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("Unknown patient propagates not found", func(t *testing.T) {
		users, answers := newFixture()
		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)

		_, err := svc.ComputeMatching(context.Background(), uuidWithPrefix(0xFF))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("Non-patient user is rejected", func(t *testing.T) {
		users, answers := newFixture()
		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)

		_, err := svc.ComputeMatching(context.Background(), strongID)
		assert.True(t, errors.Is(err, domain.ErrInvalidRole))
	})

	t.Run("No completed candidates yields an empty ranking", func(t *testing.T) {
		users, answers := newFixture()
		answers.answers[strongID] = nil
		answers.answers[weakID] = nil

		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)
		results, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Candidate answer load failure fails the whole run", func(t *testing.T) {
		users, answers := newFixture()
		answers.errs = map[uuid.UUID]error{weakID: errors.New("connection reset")}

		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, nil)
		results, err := svc.ComputeMatching(context.Background(), patientID)
		require.Error(t, err)
		assert.Nil(t, results)
	})

	t.Run("Missing test definition is a hard failure", func(t *testing.T) {
		users, answers := newFixture()
		tests := &fakeTestReader{err: domain.ErrNotFound}

		svc := NewMatchingService(testLogger(), users, tests, answers, NewMatchingEngine(testLogger()), nil, nil)
		_, err := svc.ComputeMatching(context.Background(), patientID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("Records a history run", func(t *testing.T) {
		users, answers := newFixture()
		store := &fakeHistoryStore{}
		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), nil, store)

		results, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)
		require.Len(t, store.runs, 1)

		run := store.runs[0]
		assert.Equal(t, patientID.String(), run.PatientID)
		assert.Equal(t, 2, run.CandidateCount)
		assert.Equal(t, len(results), run.ResultCount)
		assert.InDelta(t, results[0].AffinityScore, run.TopScore, 1e-9)
	})

	t.Run("Second call is served from the cache", func(t *testing.T) {
		users, answers := newFixture()
		cache := &fakeResultCache{}
		svc := NewMatchingService(testLogger(), users, &fakeTestReader{}, answers, NewMatchingEngine(testLogger()), cache, nil)

		first, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)
		second, err := svc.ComputeMatching(context.Background(), patientID)
		require.NoError(t, err)

		assert.Equal(t, 1, cache.hits)
		assert.Equal(t, first, second)
	})
}
