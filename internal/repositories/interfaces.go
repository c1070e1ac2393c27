package repositories

import (
	"context"
	"time"

	"github.com/studyforge/srs-service/internal/models"
)

// Repository aggregates the per-entity repositories behind one facade so
// services receive a single injected dependency.
type Repository interface {
	Progress() ProgressRepository
	Session() SessionRepository
	Deck() DeckRepository
	Flashcard() FlashcardRepository
}

// ProgressRepository owns ProgressRecord documents. Save enforces the
// per-(user,card) write serialization: a stale version loses the race and
// returns ErrVersionConflict instead of overwriting.
type ProgressRepository interface {
	GetByUserAndCard(ctx context.Context, userID, flashcardID string) (*models.ProgressRecord, error)
	Create(ctx context.Context, record *models.ProgressRecord) error
	// Save persists an updated record only if record.Version still matches
	// the stored row, then increments the version.
	Save(ctx context.Context, record *models.ProgressRecord) error

	GetByUser(ctx context.Context, userID string, filters ProgressFilters) ([]*models.ProgressRecord, int64, error)
	GetByUserAndCards(ctx context.Context, userID string, flashcardIDs []string) ([]*models.ProgressRecord, error)

	// GetDueCards returns cards with next_review <= asOf, earliest due first,
	// ties broken by ascending ease factor (hardest cards first).
	GetDueCards(ctx context.Context, userID string, asOf time.Time, limit int) ([]*models.DueCard, error)
	// CountDueInRange counts cards with next_review in the half-open
	// interval [from, to).
	CountDueInRange(ctx context.Context, userID string, from, to time.Time) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// SessionRepository owns StudySession documents. A session is only ever
// mutated by its owning request flow, so plain saves are sufficient.
type SessionRepository interface {
	Create(ctx context.Context, session *models.StudySession) error
	GetByID(ctx context.Context, id string) (*models.StudySession, error)
	Update(ctx context.Context, session *models.StudySession) error

	List(ctx context.Context, filters SessionFilters) ([]*models.StudySession, int64, error)
	GetActiveByUser(ctx context.Context, userID string) ([]*models.StudySession, error)
	GetByUserSince(ctx context.Context, userID string, since time.Time) ([]*models.StudySession, error)
}

type DeckRepository interface {
	GetByID(ctx context.Context, id string) (*models.Deck, error)
	CanAccess(ctx context.Context, deckID, userID string) (bool, error)
}

type FlashcardRepository interface {
	GetByID(ctx context.Context, id string) (*models.Flashcard, error)
	GetIDsByDeck(ctx context.Context, deckID string) ([]string, error)
	CountByDeck(ctx context.Context, deckID string) (int64, error)
}

// ===== SHARED FILTER STRUCTS =====

type ProgressFilters struct {
	MasteryLevel *models.MasteryLevel `json:"mastery_level"`
	DueBefore    *time.Time           `json:"due_before"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
	SortBy       string               `json:"sort_by"`    // "next_review", "last_studied", "ease_factor"
	SortOrder    string               `json:"sort_order"` // "asc", "desc"
}

type SessionFilters struct {
	UserID    *string               `json:"user_id"`
	DeckID    *string               `json:"deck_id"`
	Status    *models.SessionStatus `json:"status"`
	StudyMode *models.StudyMode     `json:"study_mode"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type DeckProgressStats struct {
	DeckID            string  `json:"deck_id"`
	TotalCards        int     `json:"total_cards"`
	StudiedCards      int     `json:"studied_cards"`
	MasteredCards     int     `json:"mastered_cards"`
	StudyPercentage   float64 `json:"study_percentage"`
	MasteryPercentage float64 `json:"mastery_percentage"`
	AverageEaseFactor float64 `json:"average_ease_factor"`
}

type SRSOverview struct {
	TotalCards   int64 `json:"total_cards_in_srs"`
	OverdueCards int64 `json:"overdue_cards"`
	DueToday     int64 `json:"due_today"`
	DueTomorrow  int64 `json:"due_tomorrow"`
	DueThisWeek  int64 `json:"due_this_week"`
	ReviewLoad   int64 `json:"review_load"` // overdue + due today
}
