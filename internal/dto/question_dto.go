package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/qna-go-api/internal/models"
)

// QuestionCreateRequest is the payload to ask a question.
type QuestionCreateRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=300"`
	Description string   `json:"description" validate:"required,min=1,max=20000"`
	Subject     string   `json:"subject" validate:"required,subject"`
	Tags        []string `json:"tags" validate:"max=5,dive,required,min=1,max=30"`
}

// QuestionUpdateRequest edits a question. Asker, when sent, must match the caller.
type QuestionUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=300"`
	Description *string  `json:"description" validate:"omitempty,min=1,max=20000"`
	Subject     *string  `json:"subject" validate:"omitempty,subject"`
	Tags        []string `json:"tags" validate:"omitempty,max=5,dive,required,min=1,max=30"`
	Asker       string   `json:"asker" validate:"omitempty,max=64"`
}

// QuestionResponse describes a question with its asker resolved.
type QuestionResponse struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Subject     string       `json:"subject"`
	Tags        []string     `json:"tags"`
	Asker       string       `json:"asker"`
	User        UserResponse `json:"user"`
	Saved       *bool        `json:"saved,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// NormalizeTitle trims the title and guarantees it ends with a question mark.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" || strings.HasSuffix(title, "?") {
		return title
	}
	return title + "?"
}

// NormalizeTags trims tags and drops empty or repeated entries while keeping their order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NewQuestionResponse converts a model into a DTO. The user is filled in by enrichment.
func NewQuestionResponse(model models.Question) QuestionResponse {
	tags := []string(model.Tags)
	if tags == nil {
		tags = []string{}
	}
	return QuestionResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Subject:     model.Subject,
		Tags:        tags,
		Asker:       model.AskerID,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
