package domain

import (
	"github.com/google/uuid"
)

// Link rows are owned jointly by the two linked records. The pipeline only
// inserts them; deletion happens solely through cascading meeting deletion,
// which is an operator action, not a pipeline one.

type MeetingMember struct {
	MeetingID uuid.UUID `gorm:"type:uuid;primaryKey;column:meeting_id" json:"meeting_id"`
	MemberID  uuid.UUID `gorm:"type:uuid;primaryKey;column:member_id" json:"member_id"`
}

func (MeetingMember) TableName() string { return "meeting_member" }

type MeetingProject struct {
	MeetingID uuid.UUID `gorm:"type:uuid;primaryKey;column:meeting_id" json:"meeting_id"`
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey;column:project_id" json:"project_id"`
}

func (MeetingProject) TableName() string { return "meeting_project" }

type MeetingTopic struct {
	MeetingID uuid.UUID `gorm:"type:uuid;primaryKey;column:meeting_id" json:"meeting_id"`
	TopicID   uuid.UUID `gorm:"type:uuid;primaryKey;column:topic_id" json:"topic_id"`
}

func (MeetingTopic) TableName() string { return "meeting_topic" }

type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey;column:project_id" json:"project_id"`
	MemberID  uuid.UUID `gorm:"type:uuid;primaryKey;column:member_id" json:"member_id"`
}

func (ProjectMember) TableName() string { return "project_member" }

type ProjectTask struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey;column:project_id" json:"project_id"`
	TaskID    uuid.UUID `gorm:"type:uuid;primaryKey;column:task_id" json:"task_id"`
}

func (ProjectTask) TableName() string { return "project_task" }

// TaskAssignment joins a task to one assignee. A task with N assignees has N
// rows referencing the same task id.
type TaskAssignment struct {
	TaskID   uuid.UUID `gorm:"type:uuid;primaryKey;column:task_id" json:"task_id"`
	MemberID uuid.UUID `gorm:"type:uuid;primaryKey;column:member_id" json:"member_id"`
}

func (TaskAssignment) TableName() string { return "task_assignment" }
