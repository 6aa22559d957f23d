package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// ChatRepository persists chat tabs and their messages.
type ChatRepository interface {
	CreateTab(ctx context.Context, tab *models.ChatTab) error
	FindTab(ctx context.Context, id string) (models.ChatTab, error)
	ListTabs(ctx context.Context, chatterID string, limit int) ([]models.ChatTab, error)
	RenameTab(ctx context.Context, tab *models.ChatTab, name string) error
	DeleteTab(ctx context.Context, id string) error
	SaveMessage(ctx context.Context, chat *models.Chat) error
	ListMessages(ctx context.Context, tabID string, limit int) ([]models.Chat, error)
}

type chatRepository struct {
	store *database.Store
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(store *database.Store) ChatRepository {
	return &chatRepository{store: store}
}

func (r *chatRepository) CreateTab(ctx context.Context, tab *models.ChatTab) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	return db.Create(tab).Error
}

func (r *chatRepository) FindTab(ctx context.Context, id string) (models.ChatTab, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return models.ChatTab{}, err
	}

	var tab models.ChatTab
	if err := db.Where("id = ?", id).First(&tab).Error; err != nil {
		return models.ChatTab{}, err
	}
	return tab, nil
}

// ListTabs returns the chatter's tabs, most recently active first.
func (r *chatRepository) ListTabs(ctx context.Context, chatterID string, limit int) ([]models.ChatTab, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var tabs []models.ChatTab
	if err := db.Where("chatter_id = ?", chatterID).
		Order("updated_at DESC").
		Limit(clampLimit(limit)).
		Find(&tabs).Error; err != nil {
		return nil, err
	}
	return tabs, nil
}

func (r *chatRepository) RenameTab(ctx context.Context, tab *models.ChatTab, name string) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	if err := db.Model(tab).Update("name", name).Error; err != nil {
		return err
	}
	tab.Name = name
	return nil
}

// DeleteTab removes the tab and every message in it.
func (r *chatRepository) DeleteTab(ctx context.Context, id string) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tab_id = ?", id).Delete(&models.Chat{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.ChatTab{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SaveMessage stores a message and marks its tab as recently active.
func (r *chatRepository) SaveMessage(ctx context.Context, chat *models.Chat) error {
	db, err := r.store.DB(ctx)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatTab{}).Where("id = ?", chat.TabID).Update("updated_at", chat.CreatedAt).Error
	})
}

// ListMessages returns the latest messages of a tab in chronological order.
func (r *chatRepository) ListMessages(ctx context.Context, tabID string, limit int) ([]models.Chat, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var messages []models.Chat
	if err := db.Where("tab_id = ?", tabID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
