package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Member is a committee member. The roster is operator-managed; transcript
// processing never creates members, it only resolves against them.
type Member struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"not null;column:name" json:"name"`

	// Aliases is a JSON string list of alternative spellings/nicknames the
	// resolver also scores against.
	Aliases datatypes.JSON `gorm:"column:aliases" json:"aliases"`

	// ChatID is the member's identity on the chat transport (e.g. a Discord
	// user id). Unique when set; empty when the account is not linked.
	ChatID       string `gorm:"column:chat_id;index" json:"chat_id"`
	Role         string `gorm:"column:role" json:"role"`
	Subcommittee string `gorm:"column:subcommittee" json:"subcommittee"`
	Email        string `gorm:"column:email" json:"email"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Member) TableName() string { return "member" }

// AliasList decodes the Aliases JSON column; a null/invalid column is an
// empty list, never an error.
func (m *Member) AliasList() []string {
	if len(m.Aliases) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(m.Aliases, &out); err != nil {
		return nil
	}
	return out
}
