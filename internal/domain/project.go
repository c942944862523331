package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project name uniqueness is soft: the resolver avoids near-duplicates, the
// schema does not enforce them.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null;index;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Project) TableName() string { return "project" }
