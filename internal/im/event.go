package im

import (
	"Portal/internal/api/dto"
	"Portal/internal/pkg/util"
	"fmt"

	"github.com/goccy/go-json"
)

// AdminsRoom 所有管理员连接共享的频道
const AdminsRoom = "admins"

// 上行事件
const (
	EventJoinConversation  = "joinConversation"
	EventLeaveConversation = "leaveConversation"
	EventSendMessage       = "sendMessage"
	EventMarkAsRead        = "markAsRead"
)

// 下行事件
const (
	EventNewMessage       = "newMessage"
	EventAdminNewMessage  = "adminNewMessage"
	EventAdminUnreadCount = "adminUnreadCount"
	EventMessagesRead     = "messagesRead"
	EventError            = "error"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound 客户端上行事件，取值仅限本文件中定义的类型
type Inbound interface {
	inbound()
}

type JoinConversation struct {
	ConversationID string
}

type LeaveConversation struct {
	ConversationID string
}

type SendMessage struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Content        string `json:"content"`
}

type MarkAsRead struct {
	ConversationID string `json:"conversationId" validate:"required"`
	UserID         string `json:"userId"`
}

func (JoinConversation) inbound()  {}
func (LeaveConversation) inbound() {}
func (SendMessage) inbound()       {}
func (MarkAsRead) inbound()        {}

// Outbound 服务端下行事件
type Outbound interface {
	EventName() string
	payload() any
}

type NewMessage struct {
	Message *dto.MessageDTO
}

type AdminNewMessage struct {
	ConversationID string                 `json:"conversationId"`
	Message        *dto.MessageSummaryDTO `json:"message"`
	UnreadCount    int64                  `json:"unreadCount"`
	ClientID       string                 `json:"clientId"`
	ClientName     string                 `json:"clientName"`
}

type AdminUnreadCount struct {
	Totals *dto.UnreadTotalsDTO
}

type MessagesRead struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Count          int64  `json:"count"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func (NewMessage) EventName() string       { return EventNewMessage }
func (AdminNewMessage) EventName() string  { return EventAdminNewMessage }
func (AdminUnreadCount) EventName() string { return EventAdminUnreadCount }
func (MessagesRead) EventName() string     { return EventMessagesRead }
func (ErrorEvent) EventName() string       { return EventError }

func (e NewMessage) payload() any       { return e.Message }
func (e AdminNewMessage) payload() any  { return e }
func (e AdminUnreadCount) payload() any { return e.Totals }
func (e MessagesRead) payload() any     { return e }
func (e ErrorEvent) payload() any       { return e }

// DecodeInbound 解析客户端帧 {"event": ..., "data": ...}
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Event {
	case EventJoinConversation:
		id, err := decodeConversationRef(env.Data)
		if err != nil {
			return nil, err
		}
		return JoinConversation{ConversationID: id}, nil
	case EventLeaveConversation:
		id, err := decodeConversationRef(env.Data)
		if err != nil {
			return nil, err
		}
		return LeaveConversation{ConversationID: id}, nil
	case EventSendMessage:
		var ev SendMessage
		if err := decodePayload(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventMarkAsRead:
		var ev MarkAsRead
		if err := decodePayload(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// EncodeOutbound 序列化下行事件
func EncodeOutbound(ev Outbound) ([]byte, error) {
	return json.Marshal(outEnvelope{Event: ev.EventName(), Data: ev.payload()})
}

// decodeConversationRef 兼容 "conv-id" 与 {"conversationId": "conv-id"} 两种写法
func decodeConversationRef(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		var obj struct {
			ConversationID string `json:"conversationId"`
		}
		if err = json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		id = obj.ConversationID
	}
	if id == "" {
		return "", fmt.Errorf("%w: conversationId is required", ErrMalformedEvent)
	}
	return id, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformedEvent)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := util.ValidateDTO(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}
