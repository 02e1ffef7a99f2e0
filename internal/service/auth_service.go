package service

import (
	"Portal/internal/api/dto"
	"Portal/internal/model"
	"Portal/internal/pkg/consts"
	"Portal/internal/pkg/redis"
	"Portal/internal/pkg/security"
	"context"
	log "log/slog"
	"time"
)

type AuthService interface {
	AdminLogin(ctx context.Context, password string) (*dto.TokenDTO, error)
	Logout(ctx context.Context, token string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	IssueRealtimeToken(ctx context.Context, userID string) (*dto.TokenDTO, error)
}

type AuthServiceImpl struct {
	userSvc           UserService
	adminID           string
	adminPasswordHash string
}

func NewAuthService(userSvc UserService, adminID, adminPasswordHash string) AuthService {
	return &AuthServiceImpl{
		userSvc:           userSvc,
		adminID:           adminID,
		adminPasswordHash: adminPasswordHash,
	}
}

// AdminLogin 共享密码登录，签发管理员令牌
func (s *AuthServiceImpl) AdminLogin(ctx context.Context, password string) (*dto.TokenDTO, error) {
	if s.adminPasswordHash == "" {
		log.WarnContext(ctx, "未配置管理员密码，拒绝登录")
		return nil, ErrPasswordIncorrect
	}
	if err := security.CheckPasswordHash(password, s.adminPasswordHash); err != nil {
		return nil, ErrPasswordIncorrect
	}
	if _, err := s.userSvc.GetUser(ctx, s.adminID); err != nil {
		return nil, err
	}

	token, err := security.GenerateToken(s.adminID, []string{model.RoleAdmin})
	if err != nil {
		return nil, err
	}
	return &dto.TokenDTO{Token: token, UserID: s.adminID}, nil
}

// Logout 将令牌签名加入黑名单，有效期与令牌一致
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	return redis.SetWithExpiration(ctx, consts.TokenBlacklistKey+signature, true, security.JWTExpirationTime)
}

func (s *AuthServiceImpl) IsRevoked(ctx context.Context, token string) (bool, error) {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return false, err
	}
	value, err := redis.GetValue(ctx, consts.TokenBlacklistKey+signature)
	if err != nil {
		return false, err
	}
	return value != "", nil
}

// IssueRealtimeToken 为客户签发短期令牌，未知用户自动创建占位账号
func (s *AuthServiceImpl) IssueRealtimeToken(ctx context.Context, userID string) (*dto.TokenDTO, error) {
	user, err := s.userSvc.EnsurePlaceholder(ctx, userID, model.RoleClient)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, ErrAdminTokenRefused
	}

	token, err := security.GenerateTokenWithTTL(user.ID, []string{user.Role}, consts.RealtimeTokenTTLHours*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.TokenDTO{Token: token, UserID: user.ID}, nil
}
