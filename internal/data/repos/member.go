package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/bass-society/secretary-backend/internal/domain"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

type MemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, members []*types.Member) ([]*types.Member, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Member, error)
	GetByChatID(ctx context.Context, tx *gorm.DB, chatID string) (*types.Member, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Member, error)
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: baseLog.With("repo", "MemberRepo")}
}

func (r *memberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.Member) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(members) == 0 {
		return []*types.Member{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Member
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *memberRepo) GetByChatID(ctx context.Context, tx *gorm.DB, chatID string) (*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if chatID == "" {
		return nil, nil
	}
	var result types.Member
	err := transaction.WithContext(ctx).
		Where("chat_id = ?", chatID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memberRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Member
	pattern := "%" + query + "%"
	if err := transaction.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR LOWER(role) LIKE LOWER(?)", pattern, pattern, pattern).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
