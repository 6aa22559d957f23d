package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// SaveRepository persists question bookmarks.
type SaveRepository interface {
	Toggle(ctx context.Context, questionID, saverID string) (bool, error)
	IsSaved(ctx context.Context, questionID, saverID string) (bool, error)
	ListBySaver(ctx context.Context, saverID string, limit int) ([]models.Save, error)
}

type saveRepository struct {
	store *database.Store
}

// NewSaveRepository constructs a GORM-backed repository.
func NewSaveRepository(store *database.Store) SaveRepository {
	return &saveRepository{store: store}
}

// Toggle removes the bookmark when present and creates it otherwise, returning the new state.
func (r *saveRepository) Toggle(ctx context.Context, questionID, saverID string) (bool, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return false, err
	}

	saved := false
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("question_id = ? AND saver_id = ?", questionID, saverID).Delete(&models.Save{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		saved = true
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_id"}, {Name: "saver_id"}},
			DoNothing: true,
		}).Create(&models.Save{QuestionID: questionID, SaverID: saverID}).Error
	})
	if err != nil {
		return false, err
	}
	return saved, nil
}

func (r *saveRepository) IsSaved(ctx context.Context, questionID, saverID string) (bool, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&models.Save{}).
		Where("question_id = ? AND saver_id = ?", questionID, saverID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListBySaver returns the caller's bookmarks, most recent first.
func (r *saveRepository) ListBySaver(ctx context.Context, saverID string, limit int) ([]models.Save, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var saves []models.Save
	if err := db.Where("saver_id = ?", saverID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&saves).Error; err != nil {
		return nil, err
	}
	return saves, nil
}
