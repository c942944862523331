package app

import (
	"github.com/bass-society/secretary-backend/internal/data/repos"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type Repos struct {
	Member  repos.MemberRepo
	Project repos.ProjectRepo
	Topic   repos.TopicRepo
	Meeting repos.MeetingRepo
	Task    repos.TaskRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Member:  repos.NewMemberRepo(db, log),
		Project: repos.NewProjectRepo(db, log),
		Topic:   repos.NewTopicRepo(db, log),
		Meeting: repos.NewMeetingRepo(db, log),
		Task:    repos.NewTaskRepo(db, log),
	}
}
