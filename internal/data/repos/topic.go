package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/bass-society/secretary-backend/internal/domain"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

type TopicRepo interface {
	Create(ctx context.Context, tx *gorm.DB, topics []*types.Topic) ([]*types.Topic, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Topic, error)
	FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Topic, error)
	GetMeetings(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) ([]*types.Meeting, error)
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{db: db, log: baseLog.With("repo", "TopicRepo")}
}

func (r *topicRepo) Create(ctx context.Context, tx *gorm.DB, topics []*types.Topic) ([]*types.Topic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(topics) == 0 {
		return []*types.Topic{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *topicRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Topic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Topic
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *topicRepo) FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Topic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Topic
	if err := transaction.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?)", "%"+pattern+"%").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *topicRepo) GetMeetings(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Meeting
	if err := transaction.WithContext(ctx).
		Model(&types.Meeting{}).
		Joins("JOIN meeting_topic mt ON mt.meeting_id = meeting.id").
		Where("mt.topic_id = ?", topicID).
		Order("meeting.date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
