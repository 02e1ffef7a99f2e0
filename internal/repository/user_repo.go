package repository

import (
	"Portal/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepo interface {
	GetUserById(ctx context.Context, id string) (*model.User, error)
	EnsureUser(ctx context.Context, user *model.User) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

// GetUserById 未找到时返回 nil, nil
func (s *UserRepoImpl) GetUserById(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	result := s.db.WithContext(ctx).Where("id = ?", id).First(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return user, nil
}

// EnsureUser 用户不存在时以 user 为初始值创建，已存在则原样返回
func (s *UserRepoImpl) EnsureUser(ctx context.Context, user *model.User) (*model.User, error) {
	out := &model.User{}
	result := s.db.WithContext(ctx).
		Where("id = ?", user.ID).
		Attrs(user).
		FirstOrCreate(out)
	if result.Error != nil {
		return nil, result.Error
	}
	return out, nil
}

// UpsertUser 按主键插入或覆盖邮箱、昵称与角色
func (s *UserRepoImpl) UpsertUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "role", "updated_at"}),
	}).Create(user).Error
}
