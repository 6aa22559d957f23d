package dto

import (
	"time"

	"github.com/noah-isme/qna-go-api/internal/models"
)

// AnswerCreateRequest posts an answer to a question.
type AnswerCreateRequest struct {
	Question string `json:"question" validate:"required"`
	Content  string `json:"content" validate:"required,min=1,max=50000"`
}

// AnswerUpdateRequest edits an answer. Question and Answerer are the caller's claims about the
// stored record and must match it.
type AnswerUpdateRequest struct {
	Question string `json:"question" validate:"required"`
	Answerer string `json:"answerer" validate:"required,max=64"`
	Content  string `json:"content" validate:"required,min=1,max=50000"`
}

// VoteTally summarises the votes on an answer or comment for the caller.
type VoteTally struct {
	Likes        int64 `json:"likes"`
	Dislikes     int64 `json:"dislikes"`
	LikedByMe    bool  `json:"likedByMe"`
	DislikedByMe bool  `json:"dislikedByMe"`
}

// AnswerResponse describes an answer with answerer, votes and comments resolved.
type AnswerResponse struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Question  string            `json:"question"`
	Answerer  string            `json:"answerer"`
	User      UserResponse      `json:"user"`
	Votes     VoteTally         `json:"votes"`
	Comments  []CommentResponse `json:"comments"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewAnswerResponse converts a model into a DTO.
func NewAnswerResponse(model models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:        model.ID,
		Content:   model.Content,
		Question:  model.QuestionID,
		Answerer:  model.AnswererID,
		Comments:  []CommentResponse{},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
