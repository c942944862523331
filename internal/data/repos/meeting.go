package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/bass-society/secretary-backend/internal/domain"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

type MeetingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, meetings []*types.Meeting) ([]*types.Meeting, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Meeting, error)
	GetByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) (*types.Meeting, error)
	FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Meeting, error)
	ListByTypeAndRange(ctx context.Context, tx *gorm.DB, meetingType string, from, to time.Time) ([]*types.Meeting, error)
	ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.Meeting, error)
	ListMissedByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.Meeting, error)
	AddAttendee(ctx context.Context, tx *gorm.DB, meetingID, memberID uuid.UUID) error
	AddProject(ctx context.Context, tx *gorm.DB, meetingID, projectID uuid.UUID) error
	AddTopic(ctx context.Context, tx *gorm.DB, meetingID, topicID uuid.UUID) error
	GetAttendees(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Member, error)
	GetProjects(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Project, error)
	GetTopics(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Topic, error)
	GetTasks(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Task, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Meeting, error)
}

type meetingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMeetingRepo(db *gorm.DB, baseLog *logger.Logger) MeetingRepo {
	return &meetingRepo{db: db, log: baseLog.With("repo", "MeetingRepo")}
}

func (r *meetingRepo) Create(ctx context.Context, tx *gorm.DB, meetings []*types.Meeting) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(meetings) == 0 {
		return []*types.Meeting{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&meetings).Error; err != nil {
		return nil, err
	}
	return meetings, nil
}

func (r *meetingRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Meeting
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) GetByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) (*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Meeting
	err := transaction.WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *meetingRepo) FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Meeting
	if err := transaction.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?)", "%"+pattern+"%").
		Order("date DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) ListByTypeAndRange(ctx context.Context, tx *gorm.DB, meetingType string, from, to time.Time) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Meeting{})
	if meetingType != "" {
		q = q.Where("type = ?", meetingType)
	}
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", to)
	}
	var results []*types.Meeting
	if err := q.Order("date DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Meeting
	if err := transaction.WithContext(ctx).
		Model(&types.Meeting{}).
		Joins("JOIN meeting_member mm ON mm.meeting_id = meeting.id").
		Where("mm.member_id = ?", memberID).
		Order("meeting.date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) ListMissedByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Meeting
	if err := transaction.WithContext(ctx).
		Model(&types.Meeting{}).
		Where("id NOT IN (?)", transaction.
			Model(&types.MeetingMember{}).
			Select("meeting_id").
			Where("member_id = ?", memberID)).
		Order("date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) addLink(ctx context.Context, transaction *gorm.DB, model any, where string, args ...any) error {
	var count int64
	if err := transaction.WithContext(ctx).
		Model(model).
		Where(where, args...).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return pkgerrors.ErrConflict
	}
	return transaction.WithContext(ctx).Create(model).Error
}

func (r *meetingRepo) AddAttendee(ctx context.Context, tx *gorm.DB, meetingID, memberID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return r.addLink(ctx, transaction,
		&types.MeetingMember{MeetingID: meetingID, MemberID: memberID},
		"meeting_id = ? AND member_id = ?", meetingID, memberID)
}

func (r *meetingRepo) AddProject(ctx context.Context, tx *gorm.DB, meetingID, projectID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return r.addLink(ctx, transaction,
		&types.MeetingProject{MeetingID: meetingID, ProjectID: projectID},
		"meeting_id = ? AND project_id = ?", meetingID, projectID)
}

func (r *meetingRepo) AddTopic(ctx context.Context, tx *gorm.DB, meetingID, topicID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return r.addLink(ctx, transaction,
		&types.MeetingTopic{MeetingID: meetingID, TopicID: topicID},
		"meeting_id = ? AND topic_id = ?", meetingID, topicID)
}

func (r *meetingRepo) GetAttendees(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Member
	if err := transaction.WithContext(ctx).
		Model(&types.Member{}).
		Joins("JOIN meeting_member mm ON mm.member_id = member.id").
		Where("mm.meeting_id = ?", meetingID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) GetProjects(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Project
	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Joins("JOIN meeting_project mp ON mp.project_id = project.id").
		Where("mp.meeting_id = ?", meetingID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) GetTopics(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Topic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Topic
	if err := transaction.WithContext(ctx).
		Model(&types.Topic{}).
		Joins("JOIN meeting_topic mt ON mt.topic_id = topic.id").
		Where("mt.meeting_id = ?", meetingID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) GetTasks(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *meetingRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Meeting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Meeting
	pattern := "%" + query + "%"
	if err := transaction.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(summary) LIKE LOWER(?)", pattern, pattern).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
