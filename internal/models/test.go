package models

import (
	"time"

	"gorm.io/datatypes"
)

// Test is an AI generated quiz together with the creator's answers and the AI review.
type Test struct {
	Document
	Questions datatypes.JSON              `json:"questions"`
	Answers   datatypes.JSONSlice[string] `json:"answers"`
	Review    string                      `gorm:"type:text" json:"review"`
	AIModel   string                      `gorm:"size:128" json:"aiModel"`
	CreatorID string                      `gorm:"size:64;index;not null" json:"creator"`
	Subject   string                      `gorm:"size:64" json:"subject"`
	CreatedAt time.Time                   `json:"createdAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// All lists every stored model for migrations.
func All() []interface{} {
	return []interface{}{
		&Question{},
		&Answer{},
		&Comment{},
		&Like{},
		&Save{},
		&Subscription{},
		&ChatTab{},
		&Chat{},
		&Test{},
	}
}
