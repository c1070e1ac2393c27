package postgres

import (
	"context"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
	"gorm.io/gorm"
)

type DeckPostgreSQL struct {
	db *gorm.DB
}

func NewDeckPostgreSQL(db *gorm.DB) repositories.DeckRepository {
	return &DeckPostgreSQL{db: db}
}

func (d DeckPostgreSQL) GetByID(ctx context.Context, id string) (*models.Deck, error) {
	var deck models.Deck
	if err := d.db.WithContext(ctx).First(&deck, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deck, nil
}

func (d DeckPostgreSQL) CanAccess(ctx context.Context, deckID, userID string) (bool, error) {
	var deck models.Deck
	if err := d.db.WithContext(ctx).
		Select("owner_id", "is_public").
		First(&deck, "id = ?", deckID).Error; err != nil {
		return false, err
	}
	return deck.IsPublic || deck.OwnerID == userID, nil
}

type FlashcardPostgreSQL struct {
	db *gorm.DB
}

func NewFlashcardPostgreSQL(db *gorm.DB) repositories.FlashcardRepository {
	return &FlashcardPostgreSQL{db: db}
}

func (f FlashcardPostgreSQL) GetByID(ctx context.Context, id string) (*models.Flashcard, error) {
	var card models.Flashcard
	if err := f.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (f FlashcardPostgreSQL) GetIDsByDeck(ctx context.Context, deckID string) ([]string, error) {
	var ids []string
	if err := f.db.WithContext(ctx).
		Model(&models.Flashcard{}).
		Where("deck_id = ?", deckID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (f FlashcardPostgreSQL) CountByDeck(ctx context.Context, deckID string) (int64, error) {
	var count int64
	if err := f.db.WithContext(ctx).
		Model(&models.Flashcard{}).
		Where("deck_id = ?", deckID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
