package repository

import (
	"context"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// AnswerRepository persists answers.
type AnswerRepository interface {
	Create(ctx context.Context, answer *models.Answer) error
	FindByID(ctx context.Context, id string) (models.Answer, error)
	ListByQuestion(ctx context.Context, questionID string, limit int) ([]models.Answer, error)
	UpdateContent(ctx context.Context, id, content string) (models.Answer, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type answerRepository struct {
	store *database.Store
}

// NewAnswerRepository constructs a GORM-backed repository.
func NewAnswerRepository(store *database.Store) AnswerRepository {
	return &answerRepository{store: store}
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	return db.Create(answer).Error
}

func (r *answerRepository) FindByID(ctx context.Context, id string) (models.Answer, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return models.Answer{}, err
	}

	var answer models.Answer
	if err := db.Where("id = ?", id).First(&answer).Error; err != nil {
		return models.Answer{}, err
	}
	return answer, nil
}

// ListByQuestion returns answers in the order they were posted.
func (r *answerRepository) ListByQuestion(ctx context.Context, questionID string, limit int) ([]models.Answer, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	if err := db.Where("question_id = ?", questionID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(clampLimit(limit)).
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

// UpdateContent replaces the content only; ownership and question stay as stored.
func (r *answerRepository) UpdateContent(ctx context.Context, id, content string) (models.Answer, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return models.Answer{}, err
	}

	var answer models.Answer
	if err := db.Where("id = ?", id).First(&answer).Error; err != nil {
		return models.Answer{}, err
	}
	if err := db.Model(&answer).Update("content", content).Error; err != nil {
		return models.Answer{}, err
	}
	answer.Content = content
	return answer, nil
}

func (r *answerRepository) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.store, &models.Answer{}, id)
}
