package repository

import (
	"context"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// CommentRepository persists comments on answers and questions.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByAnswer(ctx context.Context, answerID string, limit int) ([]models.Comment, error)
	ListByQuestion(ctx context.Context, questionID string, limit int) ([]models.Comment, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type commentRepository struct {
	store *database.Store
}

// NewCommentRepository constructs a GORM-backed repository.
func NewCommentRepository(store *database.Store) CommentRepository {
	return &commentRepository{store: store}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	return db.Create(comment).Error
}

func (r *commentRepository) ListByAnswer(ctx context.Context, answerID string, limit int) ([]models.Comment, error) {
	return r.list(ctx, "answer_id = ?", answerID, limit)
}

func (r *commentRepository) ListByQuestion(ctx context.Context, questionID string, limit int) ([]models.Comment, error) {
	return r.list(ctx, "question_id = ?", questionID, limit)
}

func (r *commentRepository) list(ctx context.Context, clause, value string, limit int) ([]models.Comment, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := db.Where(clause, value).
		Order("created_at ASC").
		Order("id ASC").
		Limit(clampLimit(limit)).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.store, &models.Comment{}, id)
}
