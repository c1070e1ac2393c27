package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyforge/srs-service/internal/cache"
	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
)

const (
	statsCacheTTL    = 5 * time.Minute
	overviewCacheTTL = 2 * time.Minute
)

type analyticsService struct {
	repo   repositories.Repository
	logger *slog.Logger
	cache  cache.CacheService
}

func NewAnalyticsService(repo repositories.Repository, logger *slog.Logger, cacheService cache.CacheService) AnalyticsService {
	return &analyticsService{
		repo:   repo,
		logger: logger,
		cache:  cacheService,
	}
}

func (s *analyticsService) GetUserStatistics(ctx context.Context, userID string, daysBack int, now time.Time) (*UserStatistics, error) {
	if daysBack <= 0 {
		daysBack = 30
	}

	cacheKey := fmt.Sprintf("stats:user:%s:period:%d", userID, daysBack)
	var cached UserStatistics
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Stats cache read failed", "key", cacheKey, "error", err)
	}

	since := now.AddDate(0, 0, -daysBack)
	sessions, err := s.repo.Session().GetByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	stats := buildUserStatistics(sessions, daysBack, now)

	if err := s.cache.Set(ctx, cacheKey, stats, statsCacheTTL); err != nil {
		s.logger.Warn("Stats cache write failed", "key", cacheKey, "error", err)
	}
	return stats, nil
}

func buildUserStatistics(sessions []*models.StudySession, daysBack int, now time.Time) *UserStatistics {
	stats := &UserStatistics{
		PeriodDays:            daysBack,
		StudyModeDistribution: make(map[models.StudyMode]int),
		DeckUsageDistribution: make(map[string]int),
	}

	var totalCorrect, totalAnswers int
	var totalResponse, totalQuality float64

	for _, session := range sessions {
		stats.TotalSessions++
		switch session.Status {
		case models.SessionCompleted:
			stats.CompletedSessions++
		case models.SessionAbandoned:
			stats.AbandonedSessions++
		}

		stats.StudyModeDistribution[session.StudyMode]++
		stats.DeckUsageDistribution[session.DeckID]++
		stats.TotalStudyTimeMinutes += float64(session.Progress.TotalTime) / 60
		stats.TotalCardsStudied += session.Progress.CardsStudied

		totalCorrect += session.Progress.CorrectAnswers
		for _, answer := range session.Answers {
			totalAnswers++
			totalResponse += answer.ResponseTime
			totalQuality += float64(answer.Quality)
		}
	}

	if stats.TotalSessions > 0 {
		stats.CompletionRate = float64(stats.CompletedSessions) / float64(stats.TotalSessions) * 100
	}
	if totalAnswers > 0 {
		stats.OverallAccuracy = float64(totalCorrect) / float64(totalAnswers) * 100
		stats.AverageResponseTime = totalResponse / float64(totalAnswers)
		stats.AverageQuality = totalQuality / float64(totalAnswers)
	}
	stats.DailyStudyStreak = dailyStreak(sessions, now)

	if mode := maxKey(stats.StudyModeDistribution); mode != "" {
		stats.PreferredStudyMode = &mode
	}
	if deck := maxKey(stats.DeckUsageDistribution); deck != "" {
		stats.MostStudiedDeck = &deck
	}
	return stats
}

// maxKey returns the key with the highest count, breaking ties by the
// lexicographically smaller key so the result is deterministic.
func maxKey[K ~string](counts map[K]int) K {
	var best K
	bestCount := 0
	for key, count := range counts {
		if count > bestCount || (count == bestCount && (best == "" || key < best)) {
			best, bestCount = key, count
		}
	}
	return best
}

func (s *analyticsService) GetSessionHistory(ctx context.Context, userID string, daysBack int, now time.Time) (*SessionHistoryResponse, error) {
	if daysBack <= 0 {
		daysBack = 30
	}

	since := now.AddDate(0, 0, -daysBack)
	sessions, err := s.repo.Session().GetByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	items := make([]SessionHistoryItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, SessionHistoryItem{
			SessionID:           session.ID,
			DeckID:              session.DeckID,
			StudyMode:           session.StudyMode,
			Status:              session.Status,
			StartedAt:           session.StartedAt,
			CompletedAt:         session.CompletedAt,
			DurationMinutes:     session.Progress.TotalTime / 60,
			CardsStudied:        session.Progress.CardsStudied,
			Accuracy:            session.Progress.AccuracyRate,
			AverageResponseTime: session.Progress.AverageResponseTime,
			BestStreak:          session.Progress.BestStreak,
			PerformanceRating:   performanceRating(session.Progress),
		})
	}

	return &SessionHistoryResponse{
		Sessions:   items,
		TotalCount: len(items),
		PeriodDays: daysBack,
	}, nil
}

func (s *analyticsService) GetSRSOverview(ctx context.Context, userID string, now time.Time) (*repositories.SRSOverview, error) {
	cacheKey := "stats:user:" + userID + ":srs_overview"
	var cached repositories.SRSOverview
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Overview cache read failed", "key", cacheKey, "error", err)
	}

	totalCards, err := s.repo.Progress().CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count progress records: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := dayStart.AddDate(0, 0, 1)
	dayAfter := dayStart.AddDate(0, 0, 2)
	weekEnd := dayStart.AddDate(0, 0, 7)

	overdue, err := s.repo.Progress().CountDueInRange(ctx, userID, time.Time{}, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue cards: %w", err)
	}
	dueToday, err := s.repo.Progress().CountDueInRange(ctx, userID, dayStart, tomorrow)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards due today: %w", err)
	}
	dueTomorrow, err := s.repo.Progress().CountDueInRange(ctx, userID, tomorrow, dayAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards due tomorrow: %w", err)
	}
	dueThisWeek, err := s.repo.Progress().CountDueInRange(ctx, userID, dayStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards due this week: %w", err)
	}

	overview := &repositories.SRSOverview{
		TotalCards:   totalCards,
		OverdueCards: overdue,
		DueToday:     dueToday,
		DueTomorrow:  dueTomorrow,
		DueThisWeek:  dueThisWeek,
		ReviewLoad:   overdue + dueToday,
	}

	if err := s.cache.Set(ctx, cacheKey, overview, overviewCacheTTL); err != nil {
		s.logger.Warn("Overview cache write failed", "key", cacheKey, "error", err)
	}
	return overview, nil
}

func (s *analyticsService) GetDeckMastery(ctx context.Context, userID, deckID string) (*repositories.DeckProgressStats, error) {
	if _, err := s.repo.Deck().GetByID(ctx, deckID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDeckNotFound
		}
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}

	cardIDs, err := s.repo.Flashcard().GetIDsByDeck(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck cards: %w", err)
	}

	records, err := s.repo.Progress().GetByUserAndCards(ctx, userID, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress records: %w", err)
	}

	stats := &repositories.DeckProgressStats{
		DeckID:     deckID,
		TotalCards: len(cardIDs),
	}

	var easeSum float64
	for _, record := range records {
		stats.StudiedCards++
		easeSum += record.EaseFactor
		if record.MasteryLevel == models.MasteryMastered {
			stats.MasteredCards++
		}
	}

	if stats.TotalCards > 0 {
		stats.StudyPercentage = float64(stats.StudiedCards) / float64(stats.TotalCards) * 100
		stats.MasteryPercentage = float64(stats.MasteredCards) / float64(stats.TotalCards) * 100
	}
	if stats.StudiedCards > 0 {
		stats.AverageEaseFactor = easeSum / float64(stats.StudiedCards)
	}
	return stats, nil
}
