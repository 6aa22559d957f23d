package models

import (
	"encoding/hex"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDLength is the number of hex characters in an opaque document identifier.
const IDLength = 24

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// NewID returns a fresh 24 character hex identifier.
func NewID() string {
	raw := uuid.New()
	return hex.EncodeToString(raw[:IDLength/2])
}

// ValidID reports whether id has the opaque identifier format. It says nothing about existence.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Document is embedded by every stored entity and assigns its ID on insert.
type Document struct {
	ID string `gorm:"primaryKey;size:24" json:"id"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (d *Document) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	return nil
}
