package dto

import (
	"time"

	"github.com/noah-isme/qna-go-api/internal/models"
)

// SubscriptionRequest subscribes an email address to the newsletter.
type SubscriptionRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

// SubscriptionResponse describes a stored subscription.
type SubscriptionResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSubscriptionResponse converts a model into a DTO.
func NewSubscriptionResponse(model models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{ID: model.ID, Email: model.Email, CreatedAt: model.CreatedAt}
}
