package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subjects lists the fixed question categories.
var Subjects = []string{
	"mathematics",
	"physics",
	"chemistry",
	"biology",
	"computer-science",
	"history",
	"geography",
	"literature",
	"economics",
	"languages",
	"other",
}

// Vote targets.
const (
	LikeTargetAnswer  = "answer"
	LikeTargetComment = "comment"
)

// Question is asked by a user and mutated only by its asker.
type Question struct {
	Document
	Title       string                     `gorm:"size:300;not null" json:"title"`
	Description string                     `gorm:"type:text" json:"description"`
	Subject     string                     `gorm:"size:64;index" json:"subject"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	AskerID     string                     `gorm:"size:64;index;not null" json:"asker"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

// Answer holds rich text content for a question.
type Answer struct {
	Document
	Content    string    `gorm:"type:text;not null" json:"content"`
	QuestionID string    `gorm:"size:24;index;not null" json:"question"`
	AnswererID string    `gorm:"size:64;index;not null" json:"answerer"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Comment references either an answer or a question.
type Comment struct {
	Document
	Content     string    `gorm:"type:text;not null" json:"content"`
	AnswerID    *string   `gorm:"size:24;index" json:"answer,omitempty"`
	QuestionID  *string   `gorm:"size:24;index" json:"question,omitempty"`
	CommenterID string    `gorm:"size:64;index;not null" json:"commenter"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Like is a single vote. At most one row exists per target and liker.
type Like struct {
	Document
	TargetType string    `gorm:"size:16;not null;uniqueIndex:idx_like_target_liker" json:"targetType"`
	TargetID   string    `gorm:"size:24;not null;uniqueIndex:idx_like_target_liker" json:"targetId"`
	LikerID    string    `gorm:"size:64;not null;uniqueIndex:idx_like_target_liker" json:"liker"`
	IsLiked    bool      `gorm:"not null" json:"isLiked"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Save bookmarks a question for a user. Presence of the row means saved.
type Save struct {
	Document
	QuestionID string    `gorm:"size:24;not null;uniqueIndex:idx_save_question_saver" json:"question"`
	SaverID    string    `gorm:"size:64;not null;uniqueIndex:idx_save_question_saver" json:"saver"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Subscription is a newsletter email address.
type Subscription struct {
	Document
	Email     string    `gorm:"size:320;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
