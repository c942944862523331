package db

import (
	types "github.com/bass-society/secretary-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Canonical records
		&types.Member{},
		&types.Project{},
		&types.Topic{},
		&types.Meeting{},
		&types.Task{},

		// Link tables
		&types.MeetingMember{},
		&types.MeetingProject{},
		&types.MeetingTopic{},
		&types.ProjectMember{},
		&types.ProjectTask{},
		&types.TaskAssignment{},
	)
}
