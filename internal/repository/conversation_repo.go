package repository

import (
	"Portal/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	CreateConversation(ctx context.Context, conv *model.Conversation, userIDs []string) error
	GetConversation(ctx context.Context, convID string) (*model.Conversation, error)
	FindConversationBetween(ctx context.Context, userA, userB string) (*model.Conversation, error)
	IsMember(ctx context.Context, convID string, userID string) (bool, error)
	GetParticipants(ctx context.Context, convID string) ([]model.User, error)
	TouchConversation(ctx context.Context, convID string, at time.Time) error
	GetUserConversationsWithUnread(ctx context.Context, userID string) ([]*model.Conversation, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// CreateConversation 开启事务创建会话及成员关系
func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *model.Conversation, userIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Users", "Messages").Create(conv).Error; err != nil {
			return err
		}
		for _, uid := range userIDs {
			if err := tx.Create(&model.ConversationUser{ConversationID: conv.ID, UserID: uid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetConversation 根据会话 ID 获取会话及参与者，未找到时返回 nil, nil
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Preload("Users").Where("id = ?", convID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// FindConversationBetween 查找两个用户共同参与的会话
func (s *conversationRepoImpl) FindConversationBetween(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	var convID string
	err := s.db.WithContext(ctx).Model(&model.ConversationUser{}).
		Select("conversation_id").
		Where("user_id IN ?", []string{userA, userB}).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = ?", 2).
		Limit(1).
		Scan(&convID).Error
	if err != nil {
		return nil, err
	}
	if convID == "" {
		return nil, nil
	}
	return s.GetConversation(ctx, convID)
}

// IsMember 检查用户是否是会话成员
func (s *conversationRepoImpl) IsMember(ctx context.Context, convID string, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ConversationUser{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetParticipants 获取会话参与者
func (s *conversationRepoImpl) GetParticipants(ctx context.Context, convID string) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Joins("JOIN conversation_users cu ON cu.user_id = users.id").
		Where("cu.conversation_id = ?", convID).
		Find(&users).Error
	return users, err
}

// TouchConversation 刷新会话最后活跃时间
func (s *conversationRepoImpl) TouchConversation(ctx context.Context, convID string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", convID).
		UpdateColumn("updated_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	// MySQL 在值未变化时也返回 0 行
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", convID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetUserConversationsWithUnread 用户参与的会话，按最后活跃时间倒序，并装配所有未读消息
func (s *conversationRepoImpl) GetUserConversationsWithUnread(ctx context.Context, userID string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := s.userConversations(ctx, userID).
		Preload("Users").
		Preload("Messages", "`read` = ?", false).
		Find(&convs).Error
	return convs, err
}

func (s *conversationRepoImpl) userConversations(ctx context.Context, userID string) *gorm.DB {
	return s.db.WithContext(ctx).
		Joins("JOIN conversation_users cu ON cu.conversation_id = conversations.id").
		Where("cu.user_id = ?", userID).
		Order("conversations.updated_at DESC")
}
