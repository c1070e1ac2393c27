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
	"github.com/studyforge/srs-service/internal/srs"
	"github.com/studyforge/srs-service/internal/utils"
)

type progressService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	cache     cache.CacheService
	policy    srs.Policy
}

func NewProgressService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *utils.Validator,
	cacheService cache.CacheService,
	policy srs.Policy,
) ProgressService {
	return &progressService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cacheService,
		policy:    policy,
	}
}

func (s *progressService) RecordAnswer(ctx context.Context, req *RecordAnswerRequest, now time.Time) (*ProgressResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Quality < srs.MinQuality || req.Quality > srs.MaxQuality {
		return nil, ErrInvalidQuality
	}

	// Load existing progress; first submission initializes a fresh record.
	record, err := s.repo.Progress().GetByUserAndCard(ctx, req.UserID, req.FlashcardID)
	isNew := false
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get progress record: %w", err)
		}

		// The card must still exist before we start tracking it.
		if _, cardErr := s.repo.Flashcard().GetByID(ctx, req.FlashcardID); cardErr != nil {
			if repositories.IsNotFoundError(cardErr) {
				return nil, ErrFlashcardNotFound
			}
			return nil, fmt.Errorf("failed to get flashcard: %w", cardErr)
		}

		isNew = true
		record = &models.ProgressRecord{
			UserID:       req.UserID,
			FlashcardID:  req.FlashcardID,
			EaseFactor:   srs.InitialEaseFactor,
			Interval:     0,
			Repetitions:  0,
			FirstStudied: &now,
			MasteryLevel: models.MasteryLearning,
		}
	}

	state := srs.State{
		EaseFactor:  record.EaseFactor,
		Interval:    record.Interval,
		Repetitions: record.Repetitions,
	}

	result, err := srs.Review(s.policy, state, req.Quality, now)
	if err != nil {
		if errors.Is(err, srs.ErrInvalidQuality) {
			return nil, ErrInvalidQuality
		}
		return nil, fmt.Errorf("scheduling failed: %w", err)
	}

	// Apply the scheduling result and append to the quality history. The
	// history is append-only; times_studied always equals its length.
	record.EaseFactor = result.EaseFactor
	record.Interval = result.Interval
	record.Repetitions = result.Repetitions
	record.LastQuality = req.Quality
	record.NextReview = &result.NextReview
	record.LastStudied = &now
	record.MasteryLevel = result.MasteryLevel
	record.QualityHistory = append(record.QualityHistory, models.QualityEntry{
		Quality:      req.Quality,
		Timestamp:    now,
		ResponseTime: req.ResponseTime,
		EaseFactor:   result.EaseFactor,
		Interval:     result.Interval,
		Repetitions:  result.Repetitions,
	})
	record.TimesStudied = len(record.QualityHistory)
	record.SuccessRate = successRate(record.QualityHistory)

	if isNew {
		err = s.repo.Progress().Create(ctx, record)
	} else {
		err = s.repo.Progress().Save(ctx, record)
	}
	if err != nil {
		if repositories.IsConflictError(err) {
			s.logger.Warn("Concurrent progress update lost the race",
				"user_id", req.UserID,
				"flashcard_id", req.FlashcardID)
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("failed to persist progress record: %w", err)
	}

	s.invalidateUserCaches(ctx, req.UserID)

	s.logger.Info("Recorded answer",
		"user_id", req.UserID,
		"flashcard_id", req.FlashcardID,
		"quality", req.Quality,
		"ease_factor", record.EaseFactor,
		"interval", record.Interval,
		"repetitions", record.Repetitions,
		"mastery_level", record.MasteryLevel)

	return progressResponse(record), nil
}

func (s *progressService) GetProgress(ctx context.Context, userID, flashcardID string) (*ProgressResponse, error) {
	record, err := s.repo.Progress().GetByUserAndCard(ctx, userID, flashcardID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Never studied is a sentinel, not an error.
			return &ProgressResponse{
				UserID:       userID,
				FlashcardID:  flashcardID,
				Studied:      false,
				EaseFactor:   srs.InitialEaseFactor,
				MasteryLevel: models.MasteryLearning,
			}, nil
		}
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}

	return progressResponse(record), nil
}

func (s *progressService) GetDueCards(ctx context.Context, userID string, asOf time.Time, limit int) ([]*models.DueCard, error) {
	due, err := s.repo.Progress().GetDueCards(ctx, userID, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}
	return due, nil
}

func (s *progressService) ListProgress(ctx context.Context, userID string, filters repositories.ProgressFilters) ([]*models.ProgressRecord, int64, error) {
	records, total, err := s.repo.Progress().GetByUser(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list progress records: %w", err)
	}
	return records, total, nil
}

func (s *progressService) invalidateUserCaches(ctx context.Context, userID string) {
	if err := s.cache.DeletePattern(ctx, "stats:user:"+userID+":*"); err != nil {
		s.logger.Warn("Failed to invalidate user stats cache", "user_id", userID, "error", err)
	}
}

// successRate returns the fraction of history entries with passing recall.
func successRate(history []models.QualityEntry) float64 {
	if len(history) == 0 {
		return 0
	}
	passing := 0
	for _, entry := range history {
		if srs.IsPassing(entry.Quality) {
			passing++
		}
	}
	return float64(passing) / float64(len(history))
}

func progressResponse(record *models.ProgressRecord) *ProgressResponse {
	return &ProgressResponse{
		UserID:       record.UserID,
		FlashcardID:  record.FlashcardID,
		Studied:      true,
		EaseFactor:   record.EaseFactor,
		Interval:     record.Interval,
		Repetitions:  record.Repetitions,
		LastQuality:  record.LastQuality,
		NextReview:   record.NextReview,
		FirstStudied: record.FirstStudied,
		LastStudied:  record.LastStudied,
		TimesStudied: record.TimesStudied,
		SuccessRate:  record.SuccessRate,
		MasteryLevel: record.MasteryLevel,
	}
}
