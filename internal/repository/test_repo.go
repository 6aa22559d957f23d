package repository

import (
	"context"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// TestRepository persists AI generated tests.
type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	FindByID(ctx context.Context, id string) (models.Test, error)
	ListByCreator(ctx context.Context, creatorID string, limit int) ([]models.Test, error)
	UpdateReview(ctx context.Context, test *models.Test, review, aiModel string) error
}

type testRepository struct {
	store *database.Store
}

// NewTestRepository constructs a GORM-backed repository.
func NewTestRepository(store *database.Store) TestRepository {
	return &testRepository{store: store}
}

func (r *testRepository) Create(ctx context.Context, test *models.Test) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	return db.Create(test).Error
}

func (r *testRepository) FindByID(ctx context.Context, id string) (models.Test, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return models.Test{}, err
	}

	var test models.Test
	if err := db.Where("id = ?", id).First(&test).Error; err != nil {
		return models.Test{}, err
	}
	return test, nil
}

func (r *testRepository) ListByCreator(ctx context.Context, creatorID string, limit int) ([]models.Test, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var tests []models.Test
	if err := db.Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}

func (r *testRepository) UpdateReview(ctx context.Context, test *models.Test, review, aiModel string) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	if err := db.Model(test).Updates(map[string]interface{}{"review": review, "ai_model": aiModel}).Error; err != nil {
		return err
	}
	test.Review = review
	test.AIModel = aiModel
	return nil
}
