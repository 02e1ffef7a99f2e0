package repository

import (
	"Portal/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type MessageRepo interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	GetMessages(ctx context.Context, convID string) ([]*model.Message, error)
	GetLastMessage(ctx context.Context, convID string) (*model.Message, error)
	CountUnreadBySender(ctx context.Context, convID string, senderID string) (int64, error)
	CountUnreadExcept(ctx context.Context, convID string, recipientID string) (int64, error)
	MarkReadExcept(ctx context.Context, convID string, readerID string) (int64, error)
}

type messageRepoImpl struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepoImpl{db: db}
}

// CreateMessage 写入消息并回填发送者
func (s *messageRepoImpl) CreateMessage(ctx context.Context, msg *model.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sender").Create(msg).Error; err != nil {
			return err
		}
		sender := &model.User{}
		if err := tx.Where("id = ?", msg.SenderID).First(sender).Error; err != nil {
			return err
		}
		msg.Sender = sender
		return nil
	})
}

// GetMessages 会话全部消息，按时间正序
func (s *messageRepoImpl) GetMessages(ctx context.Context, convID string) ([]*model.Message, error) {
	messages := make([]*model.Message, 0)
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// GetLastMessage 未找到时返回 nil, nil
func (s *messageRepoImpl) GetLastMessage(ctx context.Context, convID string) (*model.Message, error) {
	msg := &model.Message{}
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		First(msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// CountUnreadBySender 统计某个发送者在会话中的未读消息
func (s *messageRepoImpl) CountUnreadBySender(ctx context.Context, convID string, senderID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id = ? AND `read` = ?", convID, senderID, false).
		Count(&count).Error
	return count, err
}

// CountUnreadExcept 统计接收者视角的未读消息（排除自己发送的）
func (s *messageRepoImpl) CountUnreadExcept(ctx context.Context, convID string, recipientID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND `read` = ?", convID, recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkReadExcept 将他人发送的未读消息批量置为已读，返回影响行数
func (s *messageRepoImpl) MarkReadExcept(ctx context.Context, convID string, readerID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND `read` = ?", convID, readerID, false).
		UpdateColumn("read", true)
	return result.RowsAffected, result.Error
}
