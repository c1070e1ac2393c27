package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/studyforge/srs-service/internal/models"
)

// EventType represents different types of study events
type EventType string

const (
	// Session lifecycle events
	EventSessionCompleted EventType = "session.completed"
	EventSessionAbandoned EventType = "session.abandoned"

	// Achievement triggers consumed by the profile service. Delivery is
	// fire-and-forget: a publish failure never rolls back the session.
	EventStreakAchieved   EventType = "achievement.streak"
	EventVolumeAchieved   EventType = "achievement.volume"
	EventAccuracyAchieved EventType = "achievement.accuracy"
)

// StudyEvent is the base envelope for all published events
type StudyEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

const (
	eventSource  = "srs-service"
	eventVersion = "1.0"
)

// NewStudyEvent builds an envelope with a fresh id and the standard
// source/version headers.
func NewStudyEvent(eventType EventType, data interface{}) *StudyEvent {
	return &StudyEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// ===== EVENT PAYLOADS =====

type SessionCompletedEvent struct {
	SessionID           string           `json:"session_id"`
	UserID              string           `json:"user_id"`
	DeckID              string           `json:"deck_id"`
	StudyMode           models.StudyMode `json:"study_mode"`
	CardsStudied        int              `json:"cards_studied"`
	AccuracyRate        float64          `json:"accuracy_rate"`
	BestStreak          int              `json:"best_streak"`
	TotalTimeSeconds    int              `json:"total_time_seconds"`
	CompletedAt         time.Time        `json:"completed_at"`
	AverageResponseTime float64          `json:"average_response_time"`
}

type SessionAbandonedEvent struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	DeckID       string    `json:"deck_id"`
	CardsStudied int       `json:"cards_studied"`
	AbandonedAt  time.Time `json:"abandoned_at"`
}

type StreakAchievedEvent struct {
	UserID     string `json:"user_id"`
	StreakDays int    `json:"streak_days"`
}

type VolumeAchievedEvent struct {
	UserID       string `json:"user_id"`
	CardsStudied int    `json:"cards_studied"`
}

type AccuracyAchievedEvent struct {
	UserID   string  `json:"user_id"`
	Accuracy float64 `json:"accuracy"`
}
