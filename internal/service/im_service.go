package service

import (
	"Portal/internal/api/dto"
	"Portal/internal/im"
	"Portal/internal/model"
	"Portal/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"strings"
)

// IMService 会话与消息的 HTTP 侧业务，实时推送统一交给 im.Engine
type IMService interface {
	GetOrCreateConversation(ctx context.Context, userID1, userID2 string) (*dto.ConversationDTO, error)
	GetAdminConversations(ctx context.Context, adminID string) ([]*dto.ConversationDTO, error)
	GetUserConversations(ctx context.Context, userID string) ([]*dto.ConversationDTO, error)
	GetMessages(ctx context.Context, callerID string, isAdmin bool, convID string) ([]*dto.MessageDTO, error)
	SendMessage(ctx context.Context, callerID, convID, content string) (*dto.MessageDTO, error)
	MarkAsRead(ctx context.Context, callerID, convID string) (*dto.MarkAsReadResp, error)
	GetAdminUnreadTotals(ctx context.Context, adminID string) (*dto.UnreadTotalsDTO, error)
}

type imServiceImpl struct {
	userSvc     UserService
	convRepo    repository.ConversationRepo
	messageRepo repository.MessageRepo
	engine      *im.Engine
}

func NewIMService(
	userSvc UserService,
	convRepo repository.ConversationRepo,
	messageRepo repository.MessageRepo,
	engine *im.Engine,
) IMService {
	return &imServiceImpl{
		userSvc:     userSvc,
		convRepo:    convRepo,
		messageRepo: messageRepo,
		engine:      engine,
	}
}

// GetOrCreateConversation 两人会话：不存在的用户创建占位账号，userID2 作为管理员一方
func (s *imServiceImpl) GetOrCreateConversation(ctx context.Context, userID1, userID2 string) (*dto.ConversationDTO, error) {
	if userID1 == "" || userID2 == "" {
		return nil, ErrParamInvalid
	}
	if userID1 == userID2 {
		return nil, ErrConversationSelf
	}

	user1, err := s.userSvc.EnsurePlaceholder(ctx, userID1, model.RoleClient)
	if err != nil {
		return nil, err
	}
	user2, err := s.userSvc.EnsurePlaceholder(ctx, userID2, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	conv, err := s.convRepo.FindConversationBetween(ctx, user1.ID, user2.ID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		newConv := &model.Conversation{}
		if err = s.convRepo.CreateConversation(ctx, newConv, []string{user1.ID, user2.ID}); err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		log.InfoContext(ctx, "会话已创建", "conversationID", newConv.ID, "userID1", user1.ID, "userID2", user2.ID)

		if conv, err = s.convRepo.GetConversation(ctx, newConv.ID); err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}
	}

	return &dto.ConversationDTO{
		ID:        conv.ID,
		Users:     im.ToParticipantDTOs(conv.Users),
		UpdatedAt: conv.UpdatedAt,
	}, nil
}

// GetAdminConversations 管理员的会话列表，未读数只统计客户发送的消息
func (s *imServiceImpl) GetAdminConversations(ctx context.Context, adminID string) ([]*dto.ConversationDTO, error) {
	convs, err := s.convRepo.GetUserConversationsWithUnread(ctx, adminID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationDTO, 0, len(convs))
	for _, conv := range convs {
		d, err := s.toConversationDTO(ctx, conv)
		if err != nil {
			return nil, err
		}
		if client, ok := conv.Client(); ok {
			d.UnreadCount = countUnread(conv.Messages, func(m *model.Message) bool { return m.SenderID == client.ID })
		}
		res = append(res, d)
	}
	return res, nil
}

// GetUserConversations 用户的会话列表，未读数为他人发送的未读消息
func (s *imServiceImpl) GetUserConversations(ctx context.Context, userID string) ([]*dto.ConversationDTO, error) {
	convs, err := s.convRepo.GetUserConversationsWithUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationDTO, 0, len(convs))
	for _, conv := range convs {
		d, err := s.toConversationDTO(ctx, conv)
		if err != nil {
			return nil, err
		}
		d.UnreadCount = countUnread(conv.Messages, func(m *model.Message) bool { return m.SenderID != userID })
		res = append(res, d)
	}
	return res, nil
}

// GetMessages 会话消息正序列表，管理员可查看任意会话
func (s *imServiceImpl) GetMessages(ctx context.Context, callerID string, isAdmin bool, convID string) ([]*dto.MessageDTO, error) {
	if isAdmin {
		conv, err := s.convRepo.GetConversation(ctx, convID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}
	} else if err := s.checkMember(ctx, convID, callerID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.GetMessages(ctx, convID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.MessageDTO, 0, len(messages))
	for _, m := range messages {
		res = append(res, im.ToMessageDTO(m))
	}
	return res, nil
}

// SendMessage HTTP 发送消息，与实时通道走同一条持久化与广播路径
func (s *imServiceImpl) SendMessage(ctx context.Context, callerID, convID, content string) (*dto.MessageDTO, error) {
	if strings.TrimSpace(content) == "" {
		return nil, im.ErrEmptyContent
	}
	if err := s.checkMember(ctx, convID, callerID); err != nil {
		return nil, err
	}
	sender, err := s.userSvc.GetUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.engine.SendMessage(ctx, im.IdentityOf(sender), convID, content)
}

// MarkAsRead 标记调用者视角的全部未读为已读
func (s *imServiceImpl) MarkAsRead(ctx context.Context, callerID, convID string) (*dto.MarkAsReadResp, error) {
	if err := s.checkMember(ctx, convID, callerID); err != nil {
		return nil, err
	}
	count, err := s.engine.MarkAsRead(ctx, convID, callerID)
	if err != nil {
		return nil, err
	}
	return &dto.MarkAsReadResp{UpdatedCount: count}, nil
}

func (s *imServiceImpl) GetAdminUnreadTotals(ctx context.Context, adminID string) (*dto.UnreadTotalsDTO, error) {
	return s.engine.Unread().TotalsForAdmin(ctx, adminID)
}

func (s *imServiceImpl) checkMember(ctx context.Context, convID, userID string) error {
	ok, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	return ErrNotMember
}

func (s *imServiceImpl) toConversationDTO(ctx context.Context, conv *model.Conversation) (*dto.ConversationDTO, error) {
	last, err := s.messageRepo.GetLastMessage(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	d := &dto.ConversationDTO{
		ID:        conv.ID,
		Users:     im.ToParticipantDTOs(conv.Users),
		UpdatedAt: conv.UpdatedAt,
	}
	if last != nil {
		d.LastMessage = im.ToMessageDTO(last)
	}
	return d, nil
}

func countUnread(messages []model.Message, match func(m *model.Message) bool) int64 {
	var n int64
	for i := range messages {
		if !messages[i].Read && match(&messages[i]) {
			n++
		}
	}
	return n
}
