package postgres

import (
	"context"
	"time"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
	"gorm.io/gorm"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (p ProgressPostgreSQL) GetByUserAndCard(ctx context.Context, userID, flashcardID string) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	if err := p.db.WithContext(ctx).
		Where("user_id = ? AND flashcard_id = ?", userID, flashcardID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (p ProgressPostgreSQL) Create(ctx context.Context, record *models.ProgressRecord) error {
	record.Version = 1
	return p.db.WithContext(ctx).Create(record).Error
}

// Save performs the optimistic write: the update only applies while the
// stored version matches the loaded one. Zero rows affected means another
// writer got there first.
func (p ProgressPostgreSQL) Save(ctx context.Context, record *models.ProgressRecord) error {
	currentVersion := record.Version
	record.Version = currentVersion + 1

	result := p.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("id = ? AND version = ?", record.ID, currentVersion).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(record)

	if result.Error != nil {
		record.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		record.Version = currentVersion
		return repositories.ErrVersionConflict
	}
	return nil
}

func (p ProgressPostgreSQL) GetByUser(ctx context.Context, userID string, filters repositories.ProgressFilters) ([]*models.ProgressRecord, int64, error) {
	var records []*models.ProgressRecord
	var total int64

	query := p.db.WithContext(ctx).Model(&models.ProgressRecord{}).Where("user_id = ?", userID)
	query = p.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = p.applyPaginationAndSort(query, filters)
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (p ProgressPostgreSQL) GetByUserAndCards(ctx context.Context, userID string, flashcardIDs []string) ([]*models.ProgressRecord, error) {
	if len(flashcardIDs) == 0 {
		return nil, nil
	}

	var records []*models.ProgressRecord
	if err := p.db.WithContext(ctx).
		Where("user_id = ? AND flashcard_id IN ?", userID, flashcardIDs).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (p ProgressPostgreSQL) GetDueCards(ctx context.Context, userID string, asOf time.Time, limit int) ([]*models.DueCard, error) {
	var due []*models.DueCard

	query := p.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Select("flashcard_id", "next_review", "ease_factor", "interval", "repetitions").
		Where("user_id = ? AND next_review IS NOT NULL AND next_review <= ?", userID, asOf).
		Order("next_review ASC").
		Order("ease_factor ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

func (p ProgressPostgreSQL) CountDueInRange(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var count int64
	if err := p.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("user_id = ? AND next_review IS NOT NULL AND next_review >= ? AND next_review < ?", userID, from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (p ProgressPostgreSQL) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := p.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (p ProgressPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ProgressFilters) *gorm.DB {
	if filters.MasteryLevel != nil {
		query = query.Where("mastery_level = ?", *filters.MasteryLevel)
	}
	if filters.DueBefore != nil {
		query = query.Where("next_review IS NOT NULL AND next_review <= ?", *filters.DueBefore)
	}
	return query
}

func (p ProgressPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.ProgressFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "next_review", "last_studied", "ease_factor", "times_studied":
	default:
		sortBy = "next_review"
	}

	order := "ASC"
	if filters.SortOrder == "desc" {
		order = "DESC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
