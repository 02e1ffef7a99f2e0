package service

import (
	"Portal/internal/model"
	"Portal/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/go-sql-driver/mysql"
)

type UserService interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	EnsurePlaceholder(ctx context.Context, id string, role string) (*model.User, error)
	EnsureAdmin(ctx context.Context, id, email, name string) (*model.User, error)
}

type UserServiceImpl struct {
	userRepo repository.UserRepo
}

func NewUserService(userRepo repository.UserRepo) UserService {
	return &UserServiceImpl{userRepo: userRepo}
}

// GetUser 用户不存在时返回 ErrUserNotFound
func (s *UserServiceImpl) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EnsurePlaceholder 用户不存在时创建占位用户，已存在的用户保持原样
func (s *UserServiceImpl) EnsurePlaceholder(ctx context.Context, id string, role string) (*model.User, error) {
	if id == "" {
		return nil, ErrParamInvalid
	}
	name := "User " + id
	user, err := s.userRepo.EnsureUser(ctx, &model.User{
		ID:    id,
		Email: id + "@example.com",
		Name:  &name,
		Role:  role,
	})
	if err == nil {
		return user, nil
	}
	// 并发请求同时创建同一用户
	if isDuplicateError(err) {
		return s.GetUser(ctx, id)
	}
	return nil, fmt.Errorf("ensure user %s: %w", id, err)
}

// EnsureAdmin 启动时写入或修正管理员账号
func (s *UserServiceImpl) EnsureAdmin(ctx context.Context, id, email, name string) (*model.User, error) {
	if email == "" {
		email = id + "@example.com"
	}
	admin := &model.User{ID: id, Email: email, Role: model.RoleAdmin}
	if name != "" {
		admin.Name = &name
	}
	if err := s.userRepo.UpsertUser(ctx, admin); err != nil {
		return nil, fmt.Errorf("upsert admin %s: %w", id, err)
	}
	log.InfoContext(ctx, "管理员账号已就绪", "userID", id)
	return admin, nil
}

func isDuplicateError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return false
}
