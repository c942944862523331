package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Meeting types recognized by the pipeline. The set is closed per deployment;
// config may extend it but the defaults mirror the society's calendar.
const (
	MeetingTypeGeneral      = "general"
	MeetingTypeSubcommittee = "subcommittee"
	MeetingTypeProject      = "project"
	MeetingTypeExec         = "exec"
	MeetingTypeOther        = "other"
)

func DefaultMeetingTypes() []string {
	return []string{
		MeetingTypeGeneral,
		MeetingTypeSubcommittee,
		MeetingTypeProject,
		MeetingTypeExec,
		MeetingTypeOther,
	}
}

// Meeting is created exactly once per ingested transcript, together with all
// of its link rows, inside a single transaction.
type Meeting struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type    string    `gorm:"not null;column:type" json:"type"`
	Date    time.Time `gorm:"not null;column:date" json:"date"`
	Name    string    `gorm:"not null;column:name" json:"name"`
	Summary string    `gorm:"column:summary" json:"summary"`

	// Fingerprint is the sha256 of the transcript text. The orchestrator
	// checks it before inserting; the unique index is only a backstop.
	Fingerprint string `gorm:"uniqueIndex;not null;column:fingerprint" json:"fingerprint"`

	// Diagnostics holds the processing report (unresolved candidates,
	// near-duplicate warnings, unparsed deadline phrases).
	Diagnostics datatypes.JSON `gorm:"column:diagnostics" json:"diagnostics"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Meeting) TableName() string { return "meeting" }
