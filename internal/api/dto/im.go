package dto

import "time"

// SenderDTO 消息发送者
type SenderDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// MessageDTO 消息明细响应，也是 newMessage 事件载荷
type MessageDTO struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	Content        string     `json:"content"`
	Read           bool       `json:"read"`
	CreatedAt      time.Time  `json:"createdAt"`
	Sender         *SenderDTO `json:"sender,omitempty" copier:"-"`
}

// MessageSummaryDTO 管理员通知中的消息摘要
type MessageSummaryDTO struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParticipantDTO 会话参与者
type ParticipantDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	ID          string            `json:"id"`
	Users       []*ParticipantDTO `json:"users"`
	LastMessage *MessageDTO       `json:"lastMessage"`
	UnreadCount int64             `json:"unreadCount"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ConversationUnreadDTO 单个会话的未读数
type ConversationUnreadDTO struct {
	ConversationID string `json:"conversationId"`
	UnreadCount    int64  `json:"unreadCount"`
}

// UnreadTotalsDTO 管理员未读汇总，也是 adminUnreadCount 事件载荷
type UnreadTotalsDTO struct {
	TotalUnreadCount int64                    `json:"totalUnreadCount"`
	Conversations    []*ConversationUnreadDTO `json:"conversations"`
}

// CreateConversationReq 创建（或获取）两人会话
type CreateConversationReq struct {
	UserID1 string `json:"userId1" binding:"required" validate:"required,max=64"`
	UserID2 string `json:"userId2" binding:"required" validate:"required,max=64"`
}

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	Content string `json:"content" binding:"required" validate:"required,max=4000"`
}

// MarkAsReadResp 标记已读结果
type MarkAsReadResp struct {
	UpdatedCount int64 `json:"updatedCount"`
}
