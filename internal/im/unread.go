package im

import (
	"Portal/internal/api/dto"
	"Portal/internal/model"
	"context"
	"fmt"
	log "log/slog"
)

// UnreadCounter 按需计算未读聚合，不做缓存
type UnreadCounter struct {
	store Store
}

func NewUnreadCounter(store Store) *UnreadCounter {
	return &UnreadCounter{store: store}
}

// CountForConversation 接收者视角：会话中他人发送且未读的消息数
func (u *UnreadCounter) CountForConversation(ctx context.Context, convID, recipientID string) (int64, error) {
	n, err := u.store.CountUnreadExcept(ctx, convID, recipientID)
	if err != nil {
		return 0, err
	}
	return max(n, 0), nil
}

// CountFromClient 会话中客户参与者发送且未读的消息数
func (u *UnreadCounter) CountFromClient(ctx context.Context, convID, clientID string) (int64, error) {
	n, err := u.store.CountUnreadMessages(ctx, convID, clientID)
	if err != nil {
		return 0, err
	}
	return max(n, 0), nil
}

// TotalsForAdmin 汇总管理员所有会话中客户发送的未读消息，任一查询失败即整体放弃
func (u *UnreadCounter) TotalsForAdmin(ctx context.Context, adminID string) (*dto.UnreadTotalsDTO, error) {
	convs, err := u.store.FindConversationsForUser(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("load conversations for %s: %w", adminID, err)
	}

	totals := &dto.UnreadTotalsDTO{Conversations: make([]*dto.ConversationUnreadDTO, 0)}
	for _, conv := range convs {
		client, ok := model.SoleClient(conv.Users)
		if !ok {
			log.DebugContext(ctx, "IM 会话缺少唯一客户，跳过未读统计", "conversationID", conv.ID)
			continue
		}

		var count int64
		for _, m := range conv.Messages {
			if m.SenderID == client.ID && !m.Read {
				count++
			}
		}
		if count > 0 {
			totals.TotalUnreadCount += count
			totals.Conversations = append(totals.Conversations, &dto.ConversationUnreadDTO{
				ConversationID: conv.ID,
				UnreadCount:    count,
			})
		}
	}
	return totals, nil
}
