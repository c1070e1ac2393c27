package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/srs-service/internal/cache"
	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/srs"
	"github.com/studyforge/srs-service/internal/utils"
)

func newTestProgressService(repo *memoryRepository) ProgressService {
	return NewProgressService(repo, testLogger(), utils.NewValidator(), cache.NoopCache{}, srs.DefaultPolicy())
}

func recordQuality(t *testing.T, svc ProgressService, userID, cardID string, quality int, now time.Time) *ProgressResponse {
	t.Helper()
	resp, err := svc.RecordAnswer(context.Background(), &RecordAnswerRequest{
		UserID:      userID,
		FlashcardID: cardID,
		Quality:     quality,
	}, now)
	require.NoError(t, err)
	return resp
}

func TestRecordAnswer_FirstSubmission(t *testing.T) {
	repo := newMemoryRepository()
	repo.seedDeck("deck-1", "user-1", false, "card-1")
	svc := newTestProgressService(repo)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resp := recordQuality(t, svc, "user-1", "card-1", 4, now)

	assert.Equal(t, 1, resp.Repetitions)
	assert.Equal(t, 1, resp.Interval)
	assert.Equal(t, 2.5, resp.EaseFactor)
	assert.Equal(t, 1, resp.TimesStudied)
	assert.Equal(t, models.MasteryLearning, resp.MasteryLevel)
	require.NotNil(t, resp.NextReview)
	assert.Equal(t, now.AddDate(0, 0, 1), *resp.NextReview)
	require.NotNil(t, resp.FirstStudied)
	assert.Equal(t, now, *resp.FirstStudied)
}

func TestRecordAnswer_UnknownFlashcard(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestProgressService(repo)

	_, err := svc.RecordAnswer(context.Background(), &RecordAnswerRequest{
		UserID:      "user-1",
		FlashcardID: "missing",
		Quality:     4,
	}, time.Now())

	assert.ErrorIs(t, err, ErrFlashcardNotFound)
}

func TestRecordAnswer_InvalidQuality(t *testing.T) {
	repo := newMemoryRepository()
	repo.seedDeck("deck-1", "user-1", false, "card-1")
	svc := newTestProgressService(repo)

	for _, quality := range []int{-1, 6, 42} {
		_, err := svc.RecordAnswer(context.Background(), &RecordAnswerRequest{
			UserID:      "user-1",
			FlashcardID: "card-1",
			Quality:     quality,
		}, time.Now())
		assert.True(t, IsValidation(err), "quality %d should be rejected", quality)
	}
}

func TestRecordAnswer_PassingProgression(t *testing.T) {
	repo := newMemoryRepository()
	repo.seedDeck("deck-1", "user-1", false, "card-1")
	svc := newTestProgressService(repo)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	resp := recordQuality(t, svc, "user-1", "card-1", 4, now)
	assert.Equal(t, 1, resp.Interval)

	now = now.AddDate(0, 0, 1)
	resp = recordQuality(t, svc, "user-1", "card-1", 4, now)
	assert.Equal(t, 6, resp.Interval)
	assert.Equal(t, 2, resp.Repetitions)

	now = now.AddDate(0, 0, 6)
	resp = recordQuality(t, svc, "user-1", "card-1", 4, now)
	assert.Equal(t, 15, resp.Interval)
	assert.Equal(t, 3, resp.Repetitions)
	assert.Equal(t, now.AddDate(0, 0, 15), *resp.NextReview)
	assert.Equal(t, 3, resp.TimesStudied)
	assert.Equal(t, 1.0, resp.SuccessRate)
}

func TestRecordAnswer_FailResetsSchedule(t *testing.T) {
	repo := newMemoryRepository()
	repo.seedDeck("deck-1", "user-1", false, "card-1")
	svc := newTestProgressService(repo)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recordQuality(t, svc, "user-1", "card-1", 5, now)
	now = now.AddDate(0, 0, 1)
	recordQuality(t, svc, "user-1", "card-1", 5, now)

	now = now.AddDate(0, 0, 6)
	resp := recordQuality(t, svc, "user-1", "card-1", 1, now)

	assert.Equal(t, 0, resp.Repetitions)
	assert.Equal(t, 1, resp.Interval)
	assert.InDelta(t, 2.5, resp.EaseFactor, 1e-9) // 2.7 after two 5s, minus the 0.2 penalty
	assert.Equal(t, 3, resp.TimesStudied)
	assert.InDelta(t, 2.0/3.0, resp.SuccessRate, 1e-9)
}

func TestRecordAnswer_HistoryMatchesTimesStudied(t *testing.T) {
	repo := newMemoryRepository()
	repo.seedDeck("deck-1", "user-1", false, "card-1")
	svc := newTestProgressService(repo)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	qualities := []int{4, 2, 5, 3, 0, 4, 4}
	for i, quality := range qualities {
		recordQuality(t, svc, "user-1", "card-1", quality, now.AddDate(0, 0, i))
	}

	record, err := repo.progress.GetByUserAndCard(context.Background(), "user-1", "card-1")
	require.NoError(t, err)
	assert.Len(t, record.QualityHistory, len(qualities))
	assert.Equal(t, len(qualities), record.TimesStudied)
	assert.InDelta(t, 5.0/7.0, record.SuccessRate, 1e-9)
}

func TestRecordAnswer_ConcurrencyConflict(t *testing.T) {
	repo := newMemoryRepository()
	repo.seedDeck("deck-1", "user-1", false, "card-1")
	svc := newTestProgressService(repo)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recordQuality(t, svc, "user-1", "card-1", 4, now)

	repo.progress.forceConflict = true
	_, err := svc.RecordAnswer(context.Background(), &RecordAnswerRequest{
		UserID:      "user-1",
		FlashcardID: "card-1",
		Quality:     4,
	}, now.AddDate(0, 0, 1))

	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.True(t, IsConflict(err))
}

func TestGetProgress_NeverStudied(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestProgressService(repo)

	resp, err := svc.GetProgress(context.Background(), "user-1", "card-1")
	require.NoError(t, err)

	assert.False(t, resp.Studied)
	assert.Equal(t, srs.InitialEaseFactor, resp.EaseFactor)
	assert.Equal(t, 0, resp.TimesStudied)
	assert.Nil(t, resp.NextReview)
}

func TestGetDueCards_Ordering(t *testing.T) {
	repo := newMemoryRepository()
	repo.seedDeck("deck-1", "user-1", false, "card-1", "card-2", "card-3")
	svc := newTestProgressService(repo)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recordQuality(t, svc, "user-1", "card-1", 5, base)           // due base+1d
	recordQuality(t, svc, "user-1", "card-2", 3, base.Add(time.Hour)) // due base+1d+1h, lower ease
	recordQuality(t, svc, "user-1", "card-3", 4, base.AddDate(0, 0, 5))

	due, err := svc.GetDueCards(context.Background(), "user-1", base.AddDate(0, 0, 3), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "card-1", due[0].FlashcardID)
	assert.Equal(t, "card-2", due[1].FlashcardID)
}
