package repository

import (
	"context"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// MaxListSize caps every list query.
const MaxListSize = 100

// QuestionRepository persists questions.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	FindByID(ctx context.Context, id string) (models.Question, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
	List(ctx context.Context, limit int) ([]models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Exists(ctx context.Context, id string) (bool, error)
}

type questionRepository struct {
	store *database.Store
}

// NewQuestionRepository constructs a GORM-backed repository.
func NewQuestionRepository(store *database.Store) QuestionRepository {
	return &questionRepository{store: store}
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	return db.Create(question).Error
}

func (r *questionRepository) FindByID(ctx context.Context, id string) (models.Question, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return models.Question{}, err
	}

	var question models.Question
	if err := db.Where("id = ?", id).First(&question).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

// FindByIDs returns the questions that exist, in no particular order.
func (r *questionRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return []models.Question{}, nil
	}
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	if err := db.Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) List(ctx context.Context, limit int) ([]models.Question, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	if err := db.Order("created_at DESC").Order("id DESC").Limit(clampLimit(limit)).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	return db.Save(question).Error
}

func (r *questionRepository) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.store, &models.Question{}, id)
}

func exists(ctx context.Context, store *database.Store, model interface{}, id string) (bool, error) {
	db, err := store.DB(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(model).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListSize {
		return MaxListSize
	}
	return limit
}
