package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/bass-society/secretary-backend/internal/domain"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

type TaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error)
	FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Task, error)
	ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.Task, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.Task, error)
	Assign(ctx context.Context, tx *gorm.DB, taskID, memberID uuid.UUID) error
	Unassign(ctx context.Context, tx *gorm.DB, taskID, memberID uuid.UUID) (bool, error)
	GetAssignees(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.Member, error)
	GetAssignments(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TaskAssignment, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, status string) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tasks) == 0 {
		return []*types.Task{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Task
	p := "%" + pattern + "%"
	if err := transaction.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", p, p).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Model(&types.Task{}).
		Joins("JOIN task_assignment ta ON ta.task_id = task.id").
		Where("ta.member_id = ?", memberID).
		Order("task.deadline ASC NULLS LAST").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Task{})
	if status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}
	var results []*types.Task
	if err := q.Order("deadline ASC NULLS LAST").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) Assign(ctx context.Context, tx *gorm.DB, taskID, memberID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.TaskAssignment{}).
		Where("task_id = ? AND member_id = ?", taskID, memberID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return pkgerrors.ErrConflict
	}
	return transaction.WithContext(ctx).
		Create(&types.TaskAssignment{TaskID: taskID, MemberID: memberID}).Error
}

func (r *taskRepo) Unassign(ctx context.Context, tx *gorm.DB, taskID, memberID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("task_id = ? AND member_id = ?", taskID, memberID).
		Delete(&types.TaskAssignment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *taskRepo) GetAssignees(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Member
	if err := transaction.WithContext(ctx).
		Model(&types.Member{}).
		Joins("JOIN task_assignment ta ON ta.member_id = member.id").
		Where("ta.task_id = ?", taskID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) GetAssignments(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TaskAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TaskAssignment
	if err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Task{}).
		Where("id = ?", taskID).
		Update("status", status).Error
}
