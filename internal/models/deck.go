package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Deck groups flashcards for study. The wider deck management surface
// (sharing, categories, multimedia) lives outside this service; the session
// core only needs ownership and card lookup.
type Deck struct {
	ID          string  `json:"id" gorm:"primaryKey;size:255"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	OwnerID     string  `json:"owner_id" gorm:"not null;size:255;index"`
	IsPublic    bool    `json:"is_public" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Flashcards []Flashcard `json:"flashcards,omitempty" gorm:"foreignKey:DeckID"`

	// Computed, not stored
	CardCount int `json:"card_count" gorm:"-"`
}

func (Deck) TableName() string {
	return "decks"
}

type Flashcard struct {
	ID     string `json:"id" gorm:"primaryKey;size:255"`
	DeckID string `json:"deck_id" gorm:"not null;size:255;index"`

	Question    string  `json:"question" gorm:"not null;type:text" validate:"required"`
	Answer      string  `json:"answer" gorm:"not null;type:text" validate:"required"`
	Hint        *string `json:"hint" gorm:"type:text"`
	Explanation *string `json:"explanation" gorm:"type:text"`

	Difficulty DifficultyLevel             `json:"difficulty" gorm:"size:10;default:medium"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}
