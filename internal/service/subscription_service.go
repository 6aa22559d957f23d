package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
)

// SubscriptionService stores newsletter subscriptions.
type SubscriptionService interface {
	Subscribe(ctx context.Context, payload dto.SubscriptionRequest) (dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	repo   repository.SubscriptionRepository
	logger zerolog.Logger
}

// NewSubscriptionService constructs a subscription service.
func NewSubscriptionService(repo repository.SubscriptionRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:   repo,
		logger: logger.With().Str("component", "subscription_service").Logger(),
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, payload dto.SubscriptionRequest) (dto.SubscriptionResponse, error) {
	subscription := models.Subscription{Email: strings.ToLower(strings.TrimSpace(payload.Email))}

	created, err := s.repo.Create(ctx, &subscription)
	if err != nil {
		return dto.SubscriptionResponse{}, err
	}
	if !created {
		return dto.SubscriptionResponse{}, apperror.Conflict("Email already exists")
	}

	s.logger.Info().Str("subscription_id", subscription.ID).Msg("newsletter subscription stored")
	return dto.NewSubscriptionResponse(subscription), nil
}
