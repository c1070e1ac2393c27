package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MasteryLevel string

const (
	MasteryLearning   MasteryLevel = "learning"
	MasteryPracticing MasteryLevel = "practicing"
	MasteryMastered   MasteryLevel = "mastered"
)

// QualityEntry is one submission in a card's quality history. The history is
// append-only; entries are never mutated after being written.
type QualityEntry struct {
	Quality      int       `json:"quality"`
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime float64   `json:"response_time"` // seconds
	EaseFactor   float64   `json:"ease_factor"`
	Interval     int       `json:"interval"`
	Repetitions  int       `json:"repetitions"`
}

// ProgressRecord holds the SM-2 scheduling state for one (user, flashcard)
// pair. Updates go through an optimistic version check so concurrent reviews
// of the same card never interleave.
type ProgressRecord struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	UserID      string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_card;index"`
	FlashcardID string `json:"flashcard_id" gorm:"not null;size:255;uniqueIndex:idx_user_card"`

	// Scheduling state
	EaseFactor  float64    `json:"ease_factor" gorm:"not null;default:2.5"`
	Interval    int        `json:"interval" gorm:"not null;default:0"` // days
	Repetitions int        `json:"repetitions" gorm:"not null;default:0"`
	LastQuality int        `json:"last_quality" gorm:"default:0"`
	NextReview  *time.Time `json:"next_review" gorm:"index"`

	// Study timestamps
	FirstStudied *time.Time `json:"first_studied"`
	LastStudied  *time.Time `json:"last_studied"`

	// History and derived fields
	QualityHistory datatypes.JSONSlice[QualityEntry] `json:"quality_history"`
	TimesStudied   int                               `json:"times_studied" gorm:"not null;default:0"`
	SuccessRate    float64                           `json:"success_rate" gorm:"not null;default:0"`
	MasteryLevel   MasteryLevel                      `json:"mastery_level" gorm:"size:20;default:learning;index"`

	// Optimistic concurrency control
	Version int `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

// IsDue reports whether the card is due for review at the given time.
func (p *ProgressRecord) IsDue(asOf time.Time) bool {
	return p.NextReview != nil && !p.NextReview.After(asOf)
}

// OverdueDays returns how many whole days the card is past its scheduled
// review, 0 if it is not overdue.
func (p *ProgressRecord) OverdueDays(asOf time.Time) int {
	if p.NextReview == nil || p.NextReview.After(asOf) {
		return 0
	}
	return int(asOf.Sub(*p.NextReview).Hours() / 24)
}

// DueCard is a lightweight projection used when listing cards due for review.
type DueCard struct {
	FlashcardID string    `json:"flashcard_id"`
	NextReview  time.Time `json:"next_review"`
	EaseFactor  float64   `json:"ease_factor"`
	Interval    int       `json:"interval"`
	Repetitions int       `json:"repetitions"`
}
