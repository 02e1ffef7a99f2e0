package im

import (
	"Portal/internal/model"
	"Portal/internal/repository"
	"context"
	"time"
)

// Store 引擎依赖的持久化协作者
type Store interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	TouchConversation(ctx context.Context, convID string, at time.Time) error
	CountUnreadMessages(ctx context.Context, convID string, senderID string) (int64, error)
	CountUnreadExcept(ctx context.Context, convID string, recipientID string) (int64, error)
	FindConversationParticipants(ctx context.Context, convID string) ([]model.User, error)
	IsConversationMember(ctx context.Context, convID string, userID string) (bool, error)
	// FindConversationsForUser 返回用户参与的会话，需装配 Users 与未读 Messages
	FindConversationsForUser(ctx context.Context, userID string) ([]*model.Conversation, error)
	BulkMarkRead(ctx context.Context, convID string, excludeSenderID string) (int64, error)
}

// Archiver 消息持久化成功后的旁路归档
type Archiver interface {
	Archive(msg *model.Message)
}

type repoStore struct {
	users    repository.UserRepo
	convs    repository.ConversationRepo
	messages repository.MessageRepo
}

func NewRepoStore(users repository.UserRepo, convs repository.ConversationRepo, messages repository.MessageRepo) Store {
	return &repoStore{users: users, convs: convs, messages: messages}
}

func (s *repoStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserById(ctx, id)
}

func (s *repoStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	return s.messages.CreateMessage(ctx, msg)
}

func (s *repoStore) TouchConversation(ctx context.Context, convID string, at time.Time) error {
	return s.convs.TouchConversation(ctx, convID, at)
}

func (s *repoStore) CountUnreadMessages(ctx context.Context, convID string, senderID string) (int64, error) {
	return s.messages.CountUnreadBySender(ctx, convID, senderID)
}

func (s *repoStore) CountUnreadExcept(ctx context.Context, convID string, recipientID string) (int64, error) {
	return s.messages.CountUnreadExcept(ctx, convID, recipientID)
}

func (s *repoStore) FindConversationParticipants(ctx context.Context, convID string) ([]model.User, error) {
	return s.convs.GetParticipants(ctx, convID)
}

func (s *repoStore) IsConversationMember(ctx context.Context, convID string, userID string) (bool, error) {
	return s.convs.IsMember(ctx, convID, userID)
}

func (s *repoStore) FindConversationsForUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	return s.convs.GetUserConversationsWithUnread(ctx, userID)
}

func (s *repoStore) BulkMarkRead(ctx context.Context, convID string, excludeSenderID string) (int64, error) {
	return s.messages.MarkReadExcept(ctx, convID, excludeSenderID)
}
