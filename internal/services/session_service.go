package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/srs-service/internal/events"
	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
	"github.com/studyforge/srs-service/internal/utils"
)

const (
	completionGoal    = "goal"
	completionManual  = "manual"
	completionTimeout = "timeout"

	highAccuracyThreshold = 80.0
	streakMasterThreshold = 5

	achievementAccuracyRate = 90.0
	achievementAccuracyMin  = 10
	achievementVolumeCards  = 50
)

// Daily streaks worth announcing to the achievement consumer.
var streakDayMilestones = map[int]bool{3: true, 7: true, 14: true, 30: true}

type sessionService struct {
	repo            repositories.Repository
	progressService ProgressService
	publisher       events.EventPublisher
	logger          *slog.Logger
	validator       *utils.Validator
	selector        *cardSelector

	// Sessions idle longer than this are abandoned on next touch.
	inactivityTimeout time.Duration
}

func NewSessionService(
	repo repositories.Repository,
	progressService ProgressService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
	inactivityTimeout time.Duration,
) SessionService {
	return &sessionService{
		repo:              repo,
		progressService:   progressService,
		publisher:         publisher,
		logger:            logger,
		validator:         validator,
		selector:          newCardSelector(repo),
		inactivityTimeout: inactivityTimeout,
	}
}

func (s *sessionService) Start(ctx context.Context, userID string, req *StartSessionRequest, now time.Time) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.repo.Deck().GetByID(ctx, req.DeckID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDeckNotFound
		}
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	canAccess, err := s.repo.Deck().CanAccess(ctx, req.DeckID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check deck access: %w", err)
	}
	if !canAccess {
		return nil, ErrDeckAccessDenied
	}

	scheduled, err := s.selector.Select(ctx, userID, req.DeckID, req.StudyMode, req.TargetCards, now)
	if err != nil {
		return nil, err
	}

	session := &models.StudySession{
		ID:             uuid.NewString(),
		UserID:         userID,
		DeckID:         req.DeckID,
		StudyMode:      req.StudyMode,
		Status:         models.SessionActive,
		TargetCards:    req.TargetCards,
		TargetTime:     req.TargetTime,
		CardsScheduled: scheduled,
		Answers:        []models.SessionAnswer{},
		Progress: models.SessionProgress{
			CardsRemaining: len(scheduled),
		},
		StartedAt:      now,
		LastActivityAt: now,
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create study session: %w", err)
	}

	s.logger.Info("Started study session",
		"session_id", session.ID,
		"user_id", userID,
		"deck_id", req.DeckID,
		"study_mode", req.StudyMode,
		"cards_scheduled", len(scheduled))

	return sessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID, userID string) (*SessionResponse, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return sessionResponse(session), nil
}

func (s *sessionService) GetActive(ctx context.Context, userID string) ([]*SessionResponse, error) {
	sessions, err := s.repo.Session().GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sessions: %w", err)
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, sessionResponse(session))
	}
	return responses, nil
}

func (s *sessionService) List(ctx context.Context, userID string, filters repositories.SessionFilters) ([]*SessionResponse, int64, error) {
	filters.UserID = &userID
	sessions, total, err := s.repo.Session().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, sessionResponse(session))
	}
	return responses, total, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID, userID string, req *SubmitAnswerRequest, now time.Time) (*AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	session, err := s.loadOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if session.IsExpired(s.inactivityTimeout, now) {
		if err := s.finishSession(ctx, session, completionTimeout, now); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotActive
	}
	if session.Status != models.SessionActive {
		return nil, ErrSessionNotActive
	}
	if !session.IsScheduled(req.FlashcardID) || session.HasAnswered(req.FlashcardID) {
		return nil, ErrCardNotScheduled
	}

	// SRS progress is updated first so a lost optimistic-write race surfaces
	// before the session mutates. Practice mode is pressure-free and leaves
	// the long-term schedule untouched.
	var cardProgress *ProgressResponse
	if session.StudyMode != models.ModePractice {
		cardProgress, err = s.progressService.RecordAnswer(ctx, &RecordAnswerRequest{
			UserID:       userID,
			FlashcardID:  req.FlashcardID,
			Quality:      req.Quality,
			ResponseTime: req.ResponseTime,
		}, now)
		if err != nil {
			return nil, err
		}
	}

	session.Answers = append(session.Answers, models.SessionAnswer{
		FlashcardID:  req.FlashcardID,
		Quality:      req.Quality,
		ResponseTime: req.ResponseTime,
		WasCorrect:   req.WasCorrect,
		Timestamp:    now,
	})
	session.LastActivityAt = now
	recomputeProgress(session, now)

	resp := &AnswerResponse{
		SessionID:    session.ID,
		FlashcardID:  req.FlashcardID,
		WasCorrect:   req.WasCorrect,
		Quality:      req.Quality,
		CardProgress: cardProgress,
	}
	resp.StreakMilestone = streakMilestone(session.Progress.CurrentStreak)
	resp.AccuracyMilestone = accuracyMilestone(session.Answers)

	// Answering the last scheduled card completes the session in place.
	if session.AllAnswered() {
		if err := s.finishSession(ctx, session, completionGoal, now); err != nil {
			return nil, err
		}
		resp.SessionCompleted = true
	} else {
		if err := s.repo.Session().Update(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to update study session: %w", err)
		}
	}

	resp.Progress = session.Progress
	resp.CompletionPercentage = session.CompletionPercentage()
	resp.CardsRemaining = session.Progress.CardsRemaining

	return resp, nil
}

func (s *sessionService) End(ctx context.Context, sessionID, userID string, now time.Time) (*SessionCompletionResponse, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	// Ending a terminal session is a no-op: rebuild the summary from the
	// stored record so retries are safe.
	if session.Status.IsTerminal() {
		return s.completionResponse(ctx, session, now)
	}

	completionType := completionManual
	if session.IsExpired(s.inactivityTimeout, now) {
		completionType = completionTimeout
	}
	if err := s.finishSession(ctx, session, completionType, now); err != nil {
		return nil, err
	}
	return s.completionResponse(ctx, session, now)
}

// finishSession transitions an active session to its terminal status,
// persists it and fires lifecycle plus achievement events.
func (s *sessionService) finishSession(ctx context.Context, session *models.StudySession, completionType string, now time.Time) error {
	if session.AllAnswered() {
		session.Status = models.SessionCompleted
	} else {
		session.Status = models.SessionAbandoned
	}
	session.CompletedAt = &now
	session.CompletionType = &completionType
	session.LastActivityAt = now
	recomputeProgress(session, now)

	if err := s.repo.Session().Update(ctx, session); err != nil {
		return fmt.Errorf("failed to update study session: %w", err)
	}

	s.logger.Info("Finished study session",
		"session_id", session.ID,
		"user_id", session.UserID,
		"status", session.Status,
		"completion_type", completionType,
		"cards_studied", session.Progress.CardsStudied,
		"accuracy_rate", session.Progress.AccuracyRate)

	// Fire-and-forget: a publish failure never fails the session.
	s.publishLifecycleEvents(ctx, session, now)
	return nil
}

func (s *sessionService) publishLifecycleEvents(ctx context.Context, session *models.StudySession, now time.Time) {
	var event *events.StudyEvent
	if session.Status == models.SessionCompleted {
		event = events.NewStudyEvent(events.EventSessionCompleted, events.SessionCompletedEvent{
			SessionID:           session.ID,
			UserID:              session.UserID,
			DeckID:              session.DeckID,
			StudyMode:           session.StudyMode,
			CardsStudied:        session.Progress.CardsStudied,
			AccuracyRate:        session.Progress.AccuracyRate,
			BestStreak:          session.Progress.BestStreak,
			TotalTimeSeconds:    session.Progress.TotalTime,
			CompletedAt:         now,
			AverageResponseTime: session.Progress.AverageResponseTime,
		})
	} else {
		event = events.NewStudyEvent(events.EventSessionAbandoned, events.SessionAbandonedEvent{
			SessionID:    session.ID,
			UserID:       session.UserID,
			DeckID:       session.DeckID,
			CardsStudied: session.Progress.CardsStudied,
			AbandonedAt:  now,
		})
	}
	s.publish(ctx, event)

	if session.Status != models.SessionCompleted {
		return
	}

	if session.Progress.AccuracyRate >= achievementAccuracyRate &&
		session.Progress.CardsStudied >= achievementAccuracyMin {
		s.publish(ctx, events.NewStudyEvent(events.EventAccuracyAchieved, events.AccuracyAchievedEvent{
			UserID:   session.UserID,
			Accuracy: session.Progress.AccuracyRate,
		}))
	}
	if session.Progress.CardsStudied >= achievementVolumeCards {
		s.publish(ctx, events.NewStudyEvent(events.EventVolumeAchieved, events.VolumeAchievedEvent{
			UserID:       session.UserID,
			CardsStudied: session.Progress.CardsStudied,
		}))
	}

	if days := s.dailyStudyStreak(ctx, session.UserID, now); streakDayMilestones[days] {
		s.publish(ctx, events.NewStudyEvent(events.EventStreakAchieved, events.StreakAchievedEvent{
			UserID:     session.UserID,
			StreakDays: days,
		}))
	}
}

func (s *sessionService) publish(ctx context.Context, event *events.StudyEvent) {
	if err := s.publisher.PublishStudyEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish study event",
			"event_type", event.Type,
			"error", err)
	}
}

// dailyStudyStreak counts consecutive calendar days (ending today) with at
// least one session. Errors degrade to zero; streak detection is best-effort.
func (s *sessionService) dailyStudyStreak(ctx context.Context, userID string, now time.Time) int {
	since := now.AddDate(0, 0, -60)
	sessions, err := s.repo.Session().GetByUserSince(ctx, userID, since)
	if err != nil {
		s.logger.Warn("Failed to load sessions for streak detection", "user_id", userID, "error", err)
		return 0
	}
	return dailyStreak(sessions, now)
}

func dailyStreak(sessions []*models.StudySession, now time.Time) int {
	studiedDays := make(map[string]bool, len(sessions))
	for _, session := range sessions {
		studiedDays[session.StartedAt.Format("2006-01-02")] = true
	}

	streak := 0
	for day := now; studiedDays[day.Format("2006-01-02")]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

func (s *sessionService) completionResponse(ctx context.Context, session *models.StudySession, now time.Time) (*SessionCompletionResponse, error) {
	completionType := ""
	if session.CompletionType != nil {
		completionType = *session.CompletionType
	}

	resp := &SessionCompletionResponse{
		SessionID:           session.ID,
		Status:              session.Status,
		CompletionType:      completionType,
		TotalTime:           session.Progress.TotalTime,
		CardsStudied:        session.Progress.CardsStudied,
		CorrectAnswers:      session.Progress.CorrectAnswers,
		IncorrectAnswers:    session.Progress.IncorrectAnswers,
		AccuracyRate:        session.Progress.AccuracyRate,
		AverageResponseTime: session.Progress.AverageResponseTime,
		BestStreak:          session.Progress.BestStreak,
		GoalsAchieved:       goalsAchieved(session),
		PerformanceRating:   performanceRating(session.Progress),
		RecommendedMode:     recommendMode(session),
	}

	// Best-effort lookahead; the summary is still useful without it.
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	dueTomorrow, err := s.repo.Progress().CountDueInRange(ctx, session.UserID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Warn("Failed to count cards due tomorrow", "user_id", session.UserID, "error", err)
	} else {
		resp.CardsDueTomorrow = dueTomorrow
	}

	return resp, nil
}

func (s *sessionService) loadOwnedSession(ctx context.Context, sessionID, userID string) (*models.StudySession, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get study session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionAccessDenied
	}
	return session, nil
}

// recomputeProgress rebuilds the embedded summary from the answer sequence.
// Streaks follow submission order, so the result is stable on replay.
func recomputeProgress(session *models.StudySession, now time.Time) {
	p := models.SessionProgress{
		CardsRemaining: len(session.CardsScheduled) - len(session.Answers),
	}
	if p.CardsRemaining < 0 {
		p.CardsRemaining = 0
	}

	var totalResponse float64
	current := 0
	for _, answer := range session.Answers {
		p.CardsStudied++
		totalResponse += answer.ResponseTime
		if answer.WasCorrect {
			p.CorrectAnswers++
			current++
			if current > p.BestStreak {
				p.BestStreak = current
			}
		} else {
			p.IncorrectAnswers++
			current = 0
		}
	}
	p.CurrentStreak = current

	if p.CardsStudied > 0 {
		p.AccuracyRate = float64(p.CorrectAnswers) / float64(p.CardsStudied) * 100
		p.AverageResponseTime = totalResponse / float64(p.CardsStudied)
	}

	end := now
	if session.CompletedAt != nil {
		end = *session.CompletedAt
	}
	p.TotalTime = int(end.Sub(session.StartedAt).Seconds())
	if p.TotalTime < 0 {
		p.TotalTime = 0
	}

	session.Progress = p
}

func streakMilestone(currentStreak int) string {
	switch currentStreak {
	case 5:
		return "streak_5"
	case 10:
		return "streak_10"
	case 20:
		return "streak_20"
	case 50:
		return "streak_50"
	default:
		return ""
	}
}

// accuracyMilestone fires when the rolling window of recent answers is at or
// above the achievement accuracy rate.
func accuracyMilestone(answers []models.SessionAnswer) string {
	if len(answers) < achievementAccuracyMin {
		return ""
	}
	window := answers[len(answers)-achievementAccuracyMin:]
	correct := 0
	for _, answer := range window {
		if answer.WasCorrect {
			correct++
		}
	}
	if float64(correct)/float64(len(window))*100 >= achievementAccuracyRate {
		return "accuracy_90"
	}
	return ""
}

func goalsAchieved(session *models.StudySession) []string {
	goals := []string{}
	p := session.Progress

	if session.TargetCards != nil && p.CardsStudied >= *session.TargetCards {
		goals = append(goals, "target_cards")
	}
	if session.TargetTime != nil && p.TotalTime >= *session.TargetTime*60 {
		goals = append(goals, "target_time")
	}
	if p.CardsStudied > 0 && p.AccuracyRate >= highAccuracyThreshold {
		goals = append(goals, "high_accuracy")
	}
	if p.BestStreak >= streakMasterThreshold {
		goals = append(goals, "streak_master")
	}
	return goals
}

func performanceRating(p models.SessionProgress) string {
	if p.CardsStudied == 0 {
		return "no_data"
	}
	switch {
	case p.AccuracyRate >= 90:
		return "excellent"
	case p.AccuracyRate >= 75:
		return "good"
	case p.AccuracyRate >= 60:
		return "fair"
	default:
		return "needs_practice"
	}
}

// recommendMode suggests the next study mode from this session's outcome.
func recommendMode(session *models.StudySession) models.StudyMode {
	p := session.Progress
	if p.CardsStudied == 0 {
		return models.ModeLearn
	}
	switch {
	case p.AccuracyRate < 60:
		return models.ModeReview
	case p.AccuracyRate >= 90 && session.StudyMode != models.ModeTest:
		return models.ModeTest
	default:
		return models.ModePractice
	}
}

func sessionResponse(session *models.StudySession) *SessionResponse {
	return &SessionResponse{
		ID:                   session.ID,
		UserID:               session.UserID,
		DeckID:               session.DeckID,
		StudyMode:            session.StudyMode,
		Status:               session.Status,
		Progress:             session.Progress,
		CardsScheduled:       session.CardsScheduled,
		CompletionPercentage: session.CompletionPercentage(),
		StartedAt:            session.StartedAt,
		LastActivityAt:       session.LastActivityAt,
		CompletedAt:          session.CompletedAt,
	}
}
