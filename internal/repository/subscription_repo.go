package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// SubscriptionRepository persists newsletter subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) (bool, error)
}

type subscriptionRepository struct {
	store *database.Store
}

// NewSubscriptionRepository constructs a GORM-backed repository.
func NewSubscriptionRepository(store *database.Store) SubscriptionRepository {
	return &subscriptionRepository{store: store}
}

// Create inserts the subscription and reports false when the email is already subscribed.
func (r *subscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) (bool, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return false, err
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(subscription)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
