package dto

import (
	"time"

	"github.com/noah-isme/qna-go-api/internal/models"
)

// CommentCreateRequest comments on exactly one of an answer or a question.
type CommentCreateRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=5000"`
	Answer   string `json:"answer" validate:"required_without=Question,excluded_with=Question"`
	Question string `json:"question" validate:"required_without=Answer,excluded_with=Answer"`
}

// CommentResponse describes a comment with commenter and votes resolved.
type CommentResponse struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Answer    *string      `json:"answer,omitempty"`
	Question  *string      `json:"question,omitempty"`
	Commenter string       `json:"commenter"`
	User      UserResponse `json:"user"`
	Votes     VoteTally    `json:"votes"`
	CreatedAt time.Time    `json:"createdAt"`
}

// NewCommentResponse converts a model into a DTO.
func NewCommentResponse(model models.Comment) CommentResponse {
	return CommentResponse{
		ID:        model.ID,
		Content:   model.Content,
		Answer:    model.AnswerID,
		Question:  model.QuestionID,
		Commenter: model.CommenterID,
		CreatedAt: model.CreatedAt,
	}
}
