package services

import (
	"context"
	"time"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
)

// ProgressService owns per-(user, flashcard) spaced repetition state.
type ProgressService interface {
	// RecordAnswer applies one quality submission. The read-modify-write is
	// serialized per (user, card) via optimistic versioning; on a lost race
	// it returns ErrConcurrencyConflict without retrying - retry policy
	// belongs to the caller.
	RecordAnswer(ctx context.Context, req *RecordAnswerRequest, now time.Time) (*ProgressResponse, error)

	// GetProgress returns the card's progress, or a never-studied response
	// (Studied=false) if no record exists. Absence is not an error.
	GetProgress(ctx context.Context, userID, flashcardID string) (*ProgressResponse, error)

	// GetDueCards lists cards due at asOf, earliest first, hardest first on ties.
	GetDueCards(ctx context.Context, userID string, asOf time.Time, limit int) ([]*models.DueCard, error)

	ListProgress(ctx context.Context, userID string, filters repositories.ProgressFilters) ([]*models.ProgressRecord, int64, error)
}

// SessionService manages the study session lifecycle and its derived
// statistics.
type SessionService interface {
	Start(ctx context.Context, userID string, req *StartSessionRequest, now time.Time) (*SessionResponse, error)
	Get(ctx context.Context, sessionID, userID string) (*SessionResponse, error)
	GetActive(ctx context.Context, userID string) ([]*SessionResponse, error)

	// List returns the caller's sessions, newest first, with optional
	// status/mode/deck filters and paging.
	List(ctx context.Context, userID string, filters repositories.SessionFilters) ([]*SessionResponse, int64, error)

	// SubmitAnswer records a per-card outcome, updates SRS progress through
	// ProgressService and recomputes the embedded session summary.
	SubmitAnswer(ctx context.Context, sessionID, userID string, req *SubmitAnswerRequest, now time.Time) (*AnswerResponse, error)

	// End transitions the session to completed (all cards answered) or
	// abandoned (partial). Ending an already-terminal session is a no-op.
	End(ctx context.Context, sessionID, userID string, now time.Time) (*SessionCompletionResponse, error)
}

// AnalyticsService derives read-only statistics from stored sessions and
// progress records.
type AnalyticsService interface {
	GetUserStatistics(ctx context.Context, userID string, daysBack int, now time.Time) (*UserStatistics, error)
	GetSessionHistory(ctx context.Context, userID string, daysBack int, now time.Time) (*SessionHistoryResponse, error)
	GetSRSOverview(ctx context.Context, userID string, now time.Time) (*repositories.SRSOverview, error)
	GetDeckMastery(ctx context.Context, userID, deckID string) (*repositories.DeckProgressStats, error)
}

// ExportService renders progress data into downloadable workbooks.
type ExportService interface {
	ExportProgressReport(ctx context.Context, userID string, now time.Time) ([]byte, error)
}

// ===== REQUEST STRUCTURES =====

type RecordAnswerRequest struct {
	UserID       string  `json:"user_id" validate:"required"`
	FlashcardID  string  `json:"flashcard_id" validate:"required"`
	Quality      int     `json:"quality" validate:"min=0,max=5"`
	ResponseTime float64 `json:"response_time" validate:"gte=0"`
}

type StartSessionRequest struct {
	DeckID      string           `json:"deck_id" validate:"required"`
	StudyMode   models.StudyMode `json:"study_mode" validate:"required,study_mode"`
	TargetCards *int             `json:"target_cards" validate:"omitempty,gt=0"`
	TargetTime  *int             `json:"target_time" validate:"omitempty,gt=0"` // minutes
}

type SubmitAnswerRequest struct {
	FlashcardID  string  `json:"flashcard_id" validate:"required"`
	Quality      int     `json:"quality" validate:"min=0,max=5"`
	ResponseTime float64 `json:"response_time" validate:"gte=0"`
	WasCorrect   bool    `json:"was_correct"`
}

// ===== RESPONSE STRUCTURES =====

// ProgressResponse carries a card's scheduling state. Studied=false is the
// never-studied sentinel: all other fields hold their initial values.
type ProgressResponse struct {
	UserID      string `json:"user_id"`
	FlashcardID string `json:"flashcard_id"`
	Studied     bool   `json:"studied"`

	EaseFactor   float64             `json:"ease_factor"`
	Interval     int                 `json:"interval"`
	Repetitions  int                 `json:"repetitions"`
	LastQuality  int                 `json:"last_quality"`
	NextReview   *time.Time          `json:"next_review"`
	FirstStudied *time.Time          `json:"first_studied"`
	LastStudied  *time.Time          `json:"last_studied"`
	TimesStudied int                 `json:"times_studied"`
	SuccessRate  float64             `json:"success_rate"`
	MasteryLevel models.MasteryLevel `json:"mastery_level"`
}

type SessionResponse struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	DeckID    string                 `json:"deck_id"`
	StudyMode models.StudyMode       `json:"study_mode"`
	Status    models.SessionStatus   `json:"status"`
	Progress  models.SessionProgress `json:"progress"`

	CardsScheduled       []string   `json:"cards_scheduled"`
	CompletionPercentage float64    `json:"completion_percentage"`
	StartedAt            time.Time  `json:"started_at"`
	LastActivityAt       time.Time  `json:"last_activity_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

type AnswerResponse struct {
	SessionID   string `json:"session_id"`
	FlashcardID string `json:"flashcard_id"`
	WasCorrect  bool   `json:"was_correct"`
	Quality     int    `json:"quality"`

	Progress             models.SessionProgress `json:"progress"`
	CompletionPercentage float64                `json:"completion_percentage"`
	CardsRemaining       int                    `json:"cards_remaining"`
	SessionCompleted     bool                   `json:"session_completed"`

	// SRS outcome for the answered card
	CardProgress *ProgressResponse `json:"card_progress,omitempty"`

	// Milestones
	StreakMilestone   string `json:"streak_milestone,omitempty"`
	AccuracyMilestone string `json:"accuracy_milestone,omitempty"`
}

type SessionCompletionResponse struct {
	SessionID      string               `json:"session_id"`
	Status         models.SessionStatus `json:"status"`
	CompletionType string               `json:"completion_type"`

	TotalTime           int     `json:"total_time"` // seconds
	CardsStudied        int     `json:"cards_studied"`
	CorrectAnswers      int     `json:"correct_answers"`
	IncorrectAnswers    int     `json:"incorrect_answers"`
	AccuracyRate        float64 `json:"accuracy_rate"`
	AverageResponseTime float64 `json:"average_response_time"`
	BestStreak          int     `json:"best_streak"`

	GoalsAchieved     []string          `json:"goals_achieved"`
	PerformanceRating string            `json:"performance_rating"`
	RecommendedMode   models.StudyMode  `json:"recommended_mode"`
	CardsDueTomorrow  int64             `json:"cards_due_tomorrow"`
}

type UserStatistics struct {
	PeriodDays            int     `json:"period_days"`
	TotalSessions         int     `json:"total_sessions"`
	CompletedSessions     int     `json:"completed_sessions"`
	AbandonedSessions     int     `json:"abandoned_sessions"`
	CompletionRate        float64 `json:"completion_rate"`
	TotalStudyTimeMinutes float64 `json:"total_study_time_minutes"`
	TotalCardsStudied     int     `json:"total_cards_studied"`
	OverallAccuracy       float64 `json:"overall_accuracy"`
	AverageResponseTime   float64 `json:"average_response_time"`
	AverageQuality        float64 `json:"average_quality"`
	DailyStudyStreak      int     `json:"daily_study_streak"`

	PreferredStudyMode    *models.StudyMode          `json:"preferred_study_mode,omitempty"`
	StudyModeDistribution map[models.StudyMode]int   `json:"study_mode_distribution"`
	MostStudiedDeck       *string                    `json:"most_studied_deck,omitempty"`
	DeckUsageDistribution map[string]int             `json:"deck_usage_distribution"`
}

type SessionHistoryItem struct {
	SessionID           string               `json:"session_id"`
	DeckID              string               `json:"deck_id"`
	StudyMode           models.StudyMode     `json:"study_mode"`
	Status              models.SessionStatus `json:"status"`
	StartedAt           time.Time            `json:"started_at"`
	CompletedAt         *time.Time           `json:"completed_at,omitempty"`
	DurationMinutes     int                  `json:"duration_minutes"`
	CardsStudied        int                  `json:"cards_studied"`
	Accuracy            float64              `json:"accuracy"`
	AverageResponseTime float64              `json:"average_response_time"`
	BestStreak          int                  `json:"best_streak"`
	PerformanceRating   string               `json:"performance_rating"`
}

type SessionHistoryResponse struct {
	Sessions   []SessionHistoryItem `json:"sessions"`
	TotalCount int                  `json:"total_count"`
	PeriodDays int                  `json:"period_days"`
}
