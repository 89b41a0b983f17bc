package cache

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-matching-server/internal/domain"
)

func newMockCache(t *testing.T) (*MatchCache, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewMatchCacheWithClient(client, 5*time.Minute, logger), mock
}

func sampleResults() []domain.MatchResult {
	return []domain.MatchResult{
		{
			PsychologistID:  uuid.MustParse("33333333-3333-3333-3333-333333333333"),
			AffinityScore:   0.91,
			MatchPercentage: 91,
			PassedFilters:   true,
		},
	}
}

func TestMatchCache_GetMiss(t *testing.T) {
	cache, mock := newMockCache(t)
	patientID := uuid.New()

	mock.ExpectGet(matchingKey(patientID)).RedisNil()

	results, found, err := cache.GetMatching(context.Background(), patientID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCache_GetHit(t *testing.T) {
	cache, mock := newMockCache(t)
	patientID := uuid.New()

	now := time.Now()
	payload, err := json.Marshal(CachedMatching{
		Results:   sampleResults(),
		CachedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	mock.ExpectGet(matchingKey(patientID)).SetVal(string(payload))

	results, found, err := cache.GetMatching(context.Background(), patientID)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, results, 1)
	assert.Equal(t, 91, results[0].MatchPercentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCache_GetExpiredEntryIsDropped(t *testing.T) {
	cache, mock := newMockCache(t)
	patientID := uuid.New()

	now := time.Now()
	payload, err := json.Marshal(CachedMatching{
		Results:   sampleResults(),
		CachedAt:  now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)

	mock.ExpectGet(matchingKey(patientID)).SetVal(string(payload))
	mock.ExpectDel(matchingKey(patientID)).SetVal(1)

	_, found, err := cache.GetMatching(context.Background(), patientID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCache_GetCorruptedEntryIsDropped(t *testing.T) {
	cache, mock := newMockCache(t)
	patientID := uuid.New()

	mock.ExpectGet(matchingKey(patientID)).SetVal("{not json")
	mock.ExpectDel(matchingKey(patientID)).SetVal(1)

	_, found, err := cache.GetMatching(context.Background(), patientID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCache_Set(t *testing.T) {
	cache, mock := newMockCache(t)
	patientID := uuid.New()

	mock.Regexp().ExpectSet(matchingKey(patientID), `.+`, 5*time.Minute).SetVal("OK")

	err := cache.SetMatching(context.Background(), patientID, sampleResults())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCache_Invalidate(t *testing.T) {
	cache, mock := newMockCache(t)
	patientID := uuid.New()

	mock.ExpectDel(matchingKey(patientID)).SetVal(1)

	require.NoError(t, cache.InvalidateMatching(context.Background(), patientID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCache_MissesDoNotOpenBreaker(t *testing.T) {
	cache, mock := newMockCache(t)

	// A cold cache produces a run of ordinary misses; the breaker must
	// stay closed through them.
	misses := make([]uuid.UUID, 5)
	for i := range misses {
		misses[i] = uuid.New()
		mock.ExpectGet(matchingKey(misses[i])).RedisNil()
	}
	for _, id := range misses {
		_, found, err := cache.GetMatching(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, found)
	}

	warmID := uuid.New()
	now := time.Now()
	payload, err := json.Marshal(CachedMatching{
		Results:   sampleResults(),
		CachedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	})
	require.NoError(t, err)
	mock.ExpectGet(matchingKey(warmID)).SetVal(string(payload))

	results, found, err := cache.GetMatching(context.Background(), warmID)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, results, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCache_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cache, mock := newMockCache(t)
	patientID := uuid.New()

	for i := 0; i < 5; i++ {
		mock.ExpectGet(matchingKey(patientID)).SetErr(assert.AnError)
	}

	for i := 0; i < 5; i++ {
		_, _, err := cache.GetMatching(context.Background(), patientID)
		assert.Error(t, err)
	}

	// Breaker is open now; the read degrades to a miss without touching
	// redis.
	results, found, err := cache.GetMatching(context.Background(), patientID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, results)
}
