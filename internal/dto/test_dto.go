package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/qna-go-api/internal/models"
)

// TestGenerateRequest asks a provider to write a multiple choice test.
type TestGenerateRequest struct {
	Subject    string `json:"subject" validate:"required,subject"`
	Topic      string `json:"topic" validate:"required,min=2,max=200"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Count      int    `json:"count" validate:"omitempty,min=1,max=20"`
	Provider   string `json:"provider" validate:"omitempty,oneof=openai gemini anthropic"`
	Model      string `json:"model" validate:"omitempty,max=128"`
}

// TestQuestion is a single generated multiple choice question.
type TestQuestion struct {
	Question    string   `json:"question" validate:"required"`
	Options     []string `json:"options" validate:"required,min=2,max=6"`
	Answer      string   `json:"answer" validate:"required"`
	Explanation string   `json:"explanation,omitempty"`
}

// TestGenerateResponse carries the generated questions before they are stored.
type TestGenerateResponse struct {
	Subject   string         `json:"subject"`
	Questions []TestQuestion `json:"questions"`
	AIModel   string         `json:"aiModel"`
}

// TestCreateRequest stores a generated test together with the creator's answers.
type TestCreateRequest struct {
	Subject   string          `json:"subject" validate:"required,subject"`
	Questions json.RawMessage `json:"questions" validate:"required"`
	Answers   []string        `json:"answers" validate:"max=50,dive,max=500"`
	AIModel   string          `json:"aiModel" validate:"required,max=128"`
}

// TestReviewRequest selects the provider used to review the stored answers.
type TestReviewRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=openai gemini anthropic"`
	Model    string `json:"model" validate:"omitempty,max=128"`
}

// TestResponse describes a stored test.
type TestResponse struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	Questions json.RawMessage `json:"questions"`
	Answers   []string        `json:"answers"`
	Review    string          `json:"review"`
	AIModel   string          `json:"aiModel"`
	Creator   string          `json:"creator"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewTestResponse converts a model into a DTO.
func NewTestResponse(model models.Test) TestResponse {
	answers := []string(model.Answers)
	if answers == nil {
		answers = []string{}
	}
	questions := json.RawMessage(model.Questions)
	if len(questions) == 0 {
		questions = json.RawMessage("[]")
	}
	return TestResponse{
		ID:        model.ID,
		Subject:   model.Subject,
		Questions: questions,
		Answers:   answers,
		Review:    model.Review,
		AIModel:   model.AIModel,
		Creator:   model.CreatorID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewTestResponseSlice converts a slice of models into DTOs.
func NewTestResponseSlice(items []models.Test) []TestResponse {
	out := make([]TestResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewTestResponse(item))
	}
	return out
}
