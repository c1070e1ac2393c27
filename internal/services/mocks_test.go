package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
)

// memoryRepository is an in-memory Repository used by the service tests.
type memoryRepository struct {
	progress  *memoryProgressRepo
	session   *memorySessionRepo
	deck      *memoryDeckRepo
	flashcard *memoryFlashcardRepo
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		progress:  &memoryProgressRepo{records: map[string]*models.ProgressRecord{}},
		session:   &memorySessionRepo{sessions: map[string]*models.StudySession{}},
		deck:      &memoryDeckRepo{decks: map[string]*models.Deck{}},
		flashcard: &memoryFlashcardRepo{cards: map[string]*models.Flashcard{}},
	}
}

func (r *memoryRepository) Progress() repositories.ProgressRepository   { return r.progress }
func (r *memoryRepository) Session() repositories.SessionRepository     { return r.session }
func (r *memoryRepository) Deck() repositories.DeckRepository           { return r.deck }
func (r *memoryRepository) Flashcard() repositories.FlashcardRepository { return r.flashcard }

// seedDeck registers a deck and its cards in creation order.
func (r *memoryRepository) seedDeck(deckID, ownerID string, public bool, cardIDs ...string) {
	r.deck.decks[deckID] = &models.Deck{ID: deckID, Title: deckID, OwnerID: ownerID, IsPublic: public}
	for _, cardID := range cardIDs {
		r.flashcard.cards[cardID] = &models.Flashcard{ID: cardID, DeckID: deckID}
		r.flashcard.order = append(r.flashcard.order, cardID)
	}
}

// ===== PROGRESS =====

type memoryProgressRepo struct {
	records map[string]*models.ProgressRecord
	nextID  uint

	// forceConflict makes the next Save lose the optimistic write race.
	forceConflict bool
}

func progressKey(userID, flashcardID string) string {
	return userID + "/" + flashcardID
}

func (m *memoryProgressRepo) GetByUserAndCard(ctx context.Context, userID, flashcardID string) (*models.ProgressRecord, error) {
	record, ok := m.records[progressKey(userID, flashcardID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *memoryProgressRepo) Create(ctx context.Context, record *models.ProgressRecord) error {
	m.nextID++
	record.ID = m.nextID
	clone := *record
	m.records[progressKey(record.UserID, record.FlashcardID)] = &clone
	return nil
}

func (m *memoryProgressRepo) Save(ctx context.Context, record *models.ProgressRecord) error {
	key := progressKey(record.UserID, record.FlashcardID)
	stored, ok := m.records[key]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if m.forceConflict || stored.Version != record.Version {
		return repositories.ErrVersionConflict
	}
	record.Version++
	clone := *record
	m.records[key] = &clone
	return nil
}

func (m *memoryProgressRepo) GetByUser(ctx context.Context, userID string, filters repositories.ProgressFilters) ([]*models.ProgressRecord, int64, error) {
	var out []*models.ProgressRecord
	for _, record := range m.records {
		if record.UserID == userID {
			clone := *record
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlashcardID < out[j].FlashcardID })
	return out, int64(len(out)), nil
}

func (m *memoryProgressRepo) GetByUserAndCards(ctx context.Context, userID string, flashcardIDs []string) ([]*models.ProgressRecord, error) {
	var out []*models.ProgressRecord
	for _, cardID := range flashcardIDs {
		if record, ok := m.records[progressKey(userID, cardID)]; ok {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memoryProgressRepo) GetDueCards(ctx context.Context, userID string, asOf time.Time, limit int) ([]*models.DueCard, error) {
	var due []*models.ProgressRecord
	for _, record := range m.records {
		if record.UserID == userID && record.IsDue(asOf) {
			due = append(due, record)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(*due[j].NextReview) {
			return due[i].NextReview.Before(*due[j].NextReview)
		}
		return due[i].EaseFactor < due[j].EaseFactor
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]*models.DueCard, 0, len(due))
	for _, record := range due {
		out = append(out, &models.DueCard{
			FlashcardID: record.FlashcardID,
			NextReview:  *record.NextReview,
			EaseFactor:  record.EaseFactor,
			Interval:    record.Interval,
			Repetitions: record.Repetitions,
		})
	}
	return out, nil
}

func (m *memoryProgressRepo) CountDueInRange(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var count int64
	for _, record := range m.records {
		if record.UserID != userID || record.NextReview == nil {
			continue
		}
		next := *record.NextReview
		if !next.Before(from) && next.Before(to) {
			count++
		}
	}
	return count, nil
}

func (m *memoryProgressRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	for _, record := range m.records {
		if record.UserID == userID {
			count++
		}
	}
	return count, nil
}

// ===== SESSIONS =====

type memorySessionRepo struct {
	sessions map[string]*models.StudySession
}

func (m *memorySessionRepo) Create(ctx context.Context, session *models.StudySession) error {
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memorySessionRepo) GetByID(ctx context.Context, id string) (*models.StudySession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *session
	return &clone, nil
}

func (m *memorySessionRepo) Update(ctx context.Context, session *models.StudySession) error {
	if _, ok := m.sessions[session.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memorySessionRepo) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.StudySession, int64, error) {
	var out []*models.StudySession
	for _, session := range m.sessions {
		if filters.UserID != nil && session.UserID != *filters.UserID {
			continue
		}
		clone := *session
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (m *memorySessionRepo) GetActiveByUser(ctx context.Context, userID string) ([]*models.StudySession, error) {
	var out []*models.StudySession
	for _, session := range m.sessions {
		if session.UserID == userID && session.Status == models.SessionActive {
			clone := *session
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memorySessionRepo) GetByUserSince(ctx context.Context, userID string, since time.Time) ([]*models.StudySession, error) {
	var out []*models.StudySession
	for _, session := range m.sessions {
		if session.UserID == userID && !session.StartedAt.Before(since) {
			clone := *session
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// ===== DECKS =====

type memoryDeckRepo struct {
	decks map[string]*models.Deck
}

func (m *memoryDeckRepo) GetByID(ctx context.Context, id string) (*models.Deck, error) {
	deck, ok := m.decks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *deck
	return &clone, nil
}

func (m *memoryDeckRepo) CanAccess(ctx context.Context, deckID, userID string) (bool, error) {
	deck, ok := m.decks[deckID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	return deck.IsPublic || deck.OwnerID == userID, nil
}

// ===== FLASHCARDS =====

type memoryFlashcardRepo struct {
	cards map[string]*models.Flashcard
	order []string
}

func (m *memoryFlashcardRepo) GetByID(ctx context.Context, id string) (*models.Flashcard, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *card
	return &clone, nil
}

func (m *memoryFlashcardRepo) GetIDsByDeck(ctx context.Context, deckID string) ([]string, error) {
	var out []string
	for _, cardID := range m.order {
		if m.cards[cardID].DeckID == deckID {
			out = append(out, cardID)
		}
	}
	return out, nil
}

func (m *memoryFlashcardRepo) CountByDeck(ctx context.Context, deckID string) (int64, error) {
	ids, _ := m.GetIDsByDeck(ctx, deckID)
	return int64(len(ids)), nil
}

// ===== HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
