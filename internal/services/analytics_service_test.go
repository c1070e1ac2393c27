package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/srs-service/internal/cache"
	"github.com/studyforge/srs-service/internal/events"
	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/srs"
	"github.com/studyforge/srs-service/internal/utils"
)

type analyticsFixture struct {
	*sessionFixture
	analytics AnalyticsService
}

func newAnalyticsFixture() *analyticsFixture {
	repo := newMemoryRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	validator := utils.NewValidator()
	progress := NewProgressService(repo, testLogger(), validator, cache.NoopCache{}, srs.DefaultPolicy())
	sessions := NewSessionService(repo, progress, publisher, testLogger(), validator, 30*time.Minute)
	return &analyticsFixture{
		sessionFixture: &sessionFixture{
			repo:      repo,
			publisher: publisher,
			progress:  progress,
			sessions:  sessions,
		},
		analytics: NewAnalyticsService(repo, testLogger(), cache.NoopCache{}),
	}
}

func (f *analyticsFixture) runSession(t *testing.T, deckID string, cards []string, correct []bool, now time.Time) {
	t.Helper()
	if len(cards) < 1 || len(cards) != len(correct) {
		t.Fatalf("bad fixture: %d cards, %d outcomes", len(cards), len(correct))
	}
	session := startSession(t, f.sessionFixture, "user-1", &StartSessionRequest{
		DeckID:    deckID,
		StudyMode: models.ModeCram,
	}, now)
	for i, card := range cards {
		submitAnswer(t, f.sessionFixture, session.ID, "user-1", card, correct[i], now.Add(time.Duration(i+1)*time.Minute))
	}
}

func TestGetUserStatistics(t *testing.T) {
	f := newAnalyticsFixture()
	f.repo.seedDeck("deck-1", "user-1", false, "c1", "c2")

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f.runSession(t, "deck-1", []string{"c1", "c2"}, []bool{true, false}, now)

	stats, err := f.analytics.GetUserStatistics(context.Background(), "user-1", 30, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.CompletedSessions)
	assert.Equal(t, 100.0, stats.CompletionRate)
	assert.Equal(t, 2, stats.TotalCardsStudied)
	assert.InDelta(t, 50.0, stats.OverallAccuracy, 1e-9)
	assert.Equal(t, 1, stats.DailyStudyStreak)
	require.NotNil(t, stats.PreferredStudyMode)
	assert.Equal(t, models.ModeCram, *stats.PreferredStudyMode)
	require.NotNil(t, stats.MostStudiedDeck)
	assert.Equal(t, "deck-1", *stats.MostStudiedDeck)
}

func TestGetSRSOverview(t *testing.T) {
	f := newAnalyticsFixture()
	f.repo.seedDeck("deck-1", "user-1", false, "c1", "c2", "c3")

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, card := range []string{"c1", "c2", "c3"} {
		_, err := f.progress.RecordAnswer(context.Background(), &RecordAnswerRequest{
			UserID: "user-1", FlashcardID: card, Quality: 4,
		}, base)
		require.NoError(t, err)
	}

	// Viewed two days later: all three reviews are overdue.
	overview, err := f.analytics.GetSRSOverview(context.Background(), "user-1", base.AddDate(0, 0, 2))
	require.NoError(t, err)

	assert.Equal(t, int64(3), overview.TotalCards)
	assert.Equal(t, int64(3), overview.OverdueCards)
	assert.Equal(t, int64(0), overview.DueToday)
	assert.Equal(t, int64(3), overview.ReviewLoad)
}

func TestGetDeckMastery(t *testing.T) {
	f := newAnalyticsFixture()
	f.repo.seedDeck("deck-1", "user-1", false, "c1", "c2", "c3", "c4")

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// c1 reviewed to mastery, c2 studied once, c3/c4 untouched.
	for i := 0; i < 6; i++ {
		_, err := f.progress.RecordAnswer(context.Background(), &RecordAnswerRequest{
			UserID: "user-1", FlashcardID: "c1", Quality: 5,
		}, now.AddDate(0, 0, i*10))
		require.NoError(t, err)
	}
	_, err := f.progress.RecordAnswer(context.Background(), &RecordAnswerRequest{
		UserID: "user-1", FlashcardID: "c2", Quality: 3,
	}, now)
	require.NoError(t, err)

	stats, err := f.analytics.GetDeckMastery(context.Background(), "user-1", "deck-1")
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalCards)
	assert.Equal(t, 2, stats.StudiedCards)
	assert.Equal(t, 1, stats.MasteredCards)
	assert.InDelta(t, 50.0, stats.StudyPercentage, 1e-9)
	assert.InDelta(t, 25.0, stats.MasteryPercentage, 1e-9)
}

func TestGetDeckMastery_UnknownDeck(t *testing.T) {
	f := newAnalyticsFixture()

	_, err := f.analytics.GetDeckMastery(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, ErrDeckNotFound)
}
