package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/bass-society/secretary-backend/internal/domain"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Project, error)
	FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Project, error)
	AddMember(ctx context.Context, tx *gorm.DB, projectID, memberID uuid.UUID) error
	LinkTask(ctx context.Context, tx *gorm.DB, projectID, taskID uuid.UUID) error
	GetMembers(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Member, error)
	GetTasks(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Task, error)
	CountMembers(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(projects) == 0 {
		return []*types.Project{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Project
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectRepo) FindByNamePattern(ctx context.Context, tx *gorm.DB, pattern string, limit int) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Project
	if err := transaction.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?)", "%"+pattern+"%").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectRepo) AddMember(ctx context.Context, tx *gorm.DB, projectID, memberID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProjectMember{}).
		Where("project_id = ? AND member_id = ?", projectID, memberID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return pkgerrors.ErrConflict
	}
	return transaction.WithContext(ctx).
		Create(&types.ProjectMember{ProjectID: projectID, MemberID: memberID}).Error
}

func (r *projectRepo) LinkTask(ctx context.Context, tx *gorm.DB, projectID, taskID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProjectTask{}).
		Where("project_id = ? AND task_id = ?", projectID, taskID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return pkgerrors.ErrConflict
	}
	return transaction.WithContext(ctx).
		Create(&types.ProjectTask{ProjectID: projectID, TaskID: taskID}).Error
}

func (r *projectRepo) GetMembers(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Member
	if err := transaction.WithContext(ctx).
		Model(&types.Member{}).
		Joins("JOIN project_member pm ON pm.member_id = member.id").
		Where("pm.project_id = ?", projectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectRepo) GetTasks(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Model(&types.Task{}).
		Joins("JOIN project_task pt ON pt.task_id = task.id").
		Where("pt.project_id = ?", projectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectRepo) CountMembers(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProjectMember{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
