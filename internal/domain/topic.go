package domain

import (
	"time"

	"github.com/google/uuid"
)

// Topic is free-form and created on demand by the resolver.
type Topic struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null;index;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }
