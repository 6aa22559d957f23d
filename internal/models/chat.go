package models

import (
	"time"

	"gorm.io/datatypes"
)

// Chat roles.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatTab is a named conversation owned by a chatter.
type ChatTab struct {
	Document
	Name      string    `gorm:"size:120;not null" json:"name"`
	ChatterID string    `gorm:"size:64;index;not null" json:"chatter"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Chat is a single message of a tab. Message stores the provider agnostic structure.
type Chat struct {
	Document
	TabID     string         `gorm:"size:24;index;not null" json:"tab"`
	Role      string         `gorm:"size:16;not null" json:"role"`
	Message   datatypes.JSON `json:"message"`
	Provider  string         `gorm:"size:32" json:"provider"`
	Model     string         `gorm:"size:128" json:"model"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
}
