package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusIncomplete = "incomplete"
	TaskStatusComplete   = "complete"
)

// Task is owned by the meeting that assigned it when it came from a
// transcript; chat-created tasks have no owning meeting. Assignees attach
// through TaskAssignment rows, one per member, never task-per-assignee.
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"not null;column:name" json:"name"`
	Description string     `gorm:"column:description" json:"description"`
	Deadline    *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	Status      string     `gorm:"not null;default:incomplete;column:status" json:"status"`

	MeetingID *uuid.UUID `gorm:"type:uuid;column:meeting_id;index" json:"meeting_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Task) TableName() string { return "task" }
