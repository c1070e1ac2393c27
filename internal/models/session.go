package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StudyMode string

const (
	ModeReview   StudyMode = "review"   // SRS-based review of due cards
	ModePractice StudyMode = "practice" // random selection, no SRS pressure
	ModeLearn    StudyMode = "learn"    // new cards only
	ModeTest     StudyMode = "test"     // assessment mode, no hints
	ModeCram     StudyMode = "cram"     // rapid pass over the whole deck
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// IsTerminal reports whether the status allows no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// SessionAnswer is one per-card outcome recorded during a session. Answers
// are append-only; the stored sequence is ordered by submission timestamp so
// streak computation stays deterministic under retries.
type SessionAnswer struct {
	FlashcardID  string    `json:"flashcard_id"`
	Quality      int       `json:"quality"`
	ResponseTime float64   `json:"response_time"` // seconds
	WasCorrect   bool      `json:"was_correct"`
	Timestamp    time.Time `json:"timestamp"`
}

// SessionProgress is the embedded summary derived from the answer sequence.
// Every field is recomputed from answers; none is ever set directly.
type SessionProgress struct {
	CardsStudied        int     `json:"cards_studied" gorm:"default:0"`
	CardsRemaining      int     `json:"cards_remaining" gorm:"default:0"`
	CorrectAnswers      int     `json:"correct_answers" gorm:"default:0"`
	IncorrectAnswers    int     `json:"incorrect_answers" gorm:"default:0"`
	AccuracyRate        float64 `json:"accuracy_rate" gorm:"default:0"`
	AverageResponseTime float64 `json:"average_response_time" gorm:"default:0"`
	CurrentStreak       int     `json:"current_streak" gorm:"default:0"`
	BestStreak          int     `json:"best_streak" gorm:"default:0"`
	TotalTime           int     `json:"total_time" gorm:"default:0"` // seconds
}

// StudySession is one bounded study attempt over a deck. The scheduled card
// set is fixed when the session starts; the session becomes read-only once it
// reaches a terminal status.
type StudySession struct {
	ID     string `json:"id" gorm:"primaryKey;size:255"`
	UserID string `json:"user_id" gorm:"not null;size:255;index"`
	DeckID string `json:"deck_id" gorm:"not null;size:255;index"`

	StudyMode   StudyMode     `json:"study_mode" gorm:"not null;size:20" validate:"required,study_mode"`
	Status      SessionStatus `json:"status" gorm:"not null;size:20;default:active;index"`
	TargetCards *int          `json:"target_cards"`
	TargetTime  *int          `json:"target_time"` // minutes

	CardsScheduled datatypes.JSONSlice[string]        `json:"cards_scheduled"`
	Answers        datatypes.JSONSlice[SessionAnswer] `json:"answers"`
	Progress       SessionProgress                    `json:"progress" gorm:"embedded;embeddedPrefix:progress_"`

	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CompletionType *string    `json:"completion_type"` // "goal", "manual", "timeout"

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

// HasAnswered reports whether the given card already has an answer recorded.
func (s *StudySession) HasAnswered(flashcardID string) bool {
	for _, a := range s.Answers {
		if a.FlashcardID == flashcardID {
			return true
		}
	}
	return false
}

// IsScheduled reports whether the card belongs to the session's fixed set.
func (s *StudySession) IsScheduled(flashcardID string) bool {
	for _, id := range s.CardsScheduled {
		if id == flashcardID {
			return true
		}
	}
	return false
}

// AllAnswered reports whether every scheduled card has been answered.
func (s *StudySession) AllAnswered() bool {
	return len(s.CardsScheduled) > 0 && len(s.Answers) >= len(s.CardsScheduled)
}

// IsExpired reports whether the session has seen no activity for longer than
// the given timeout. The service never runs timers; callers decide when to
// abandon an expired session.
func (s *StudySession) IsExpired(timeout time.Duration, now time.Time) bool {
	return s.Status == SessionActive && now.Sub(s.LastActivityAt) > timeout
}

// CompletionPercentage returns the share of scheduled cards answered so far.
func (s *StudySession) CompletionPercentage() float64 {
	if len(s.CardsScheduled) == 0 {
		return 0
	}
	return float64(len(s.Answers)) / float64(len(s.CardsScheduled)) * 100
}
