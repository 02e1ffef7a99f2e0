package im

import (
	"Portal/internal/api/dto"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Inbound
		wantErr error
	}{
		{"join with bare id", `{"event":"joinConversation","data":"conv-1"}`, JoinConversation{ConversationID: "conv-1"}, nil},
		{"join with object", `{"event":"joinConversation","data":{"conversationId":"conv-1"}}`, JoinConversation{ConversationID: "conv-1"}, nil},
		{"leave", `{"event":"leaveConversation","data":"conv-1"}`, LeaveConversation{ConversationID: "conv-1"}, nil},
		{"send", `{"event":"sendMessage","data":{"conversationId":"conv-1","content":"hi"}}`, SendMessage{ConversationID: "conv-1", Content: "hi"}, nil},
		{"send keeps empty content", `{"event":"sendMessage","data":{"conversationId":"conv-1","content":""}}`, SendMessage{ConversationID: "conv-1"}, nil},
		{"mark", `{"event":"markAsRead","data":{"conversationId":"conv-1","userId":"u1"}}`, MarkAsRead{ConversationID: "conv-1", UserID: "u1"}, nil},
		{"join without id", `{"event":"joinConversation","data":""}`, nil, ErrMalformedEvent},
		{"send without conversation", `{"event":"sendMessage","data":{"content":"hi"}}`, nil, ErrMalformedEvent},
		{"mark without data", `{"event":"markAsRead"}`, nil, ErrMalformedEvent},
		{"not json", `hello`, nil, ErrMalformedEvent},
		{"unknown event", `{"event":"typing","data":{}}`, nil, ErrUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.frame))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeOutbound(t *testing.T) {
	t.Run("messagesRead", func(t *testing.T) {
		data, err := EncodeOutbound(MessagesRead{ConversationID: "conv-1", UserID: "admin-1", Count: 3})
		require.NoError(t, err)
		require.JSONEq(t, `{"event":"messagesRead","data":{"conversationId":"conv-1","userId":"admin-1","count":3}}`, string(data))
	})

	t.Run("adminUnreadCount with no unread", func(t *testing.T) {
		data, err := EncodeOutbound(AdminUnreadCount{Totals: &dto.UnreadTotalsDTO{Conversations: []*dto.ConversationUnreadDTO{}}})
		require.NoError(t, err)
		require.JSONEq(t, `{"event":"adminUnreadCount","data":{"totalUnreadCount":0,"conversations":[]}}`, string(data))
	})

	t.Run("newMessage carries message payload", func(t *testing.T) {
		data, err := EncodeOutbound(NewMessage{Message: &dto.MessageDTO{ID: "m1", ConversationID: "conv-1", SenderID: "u1", Content: "hi"}})
		require.NoError(t, err)

		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		require.Equal(t, EventNewMessage, env.Event)

		var msg dto.MessageDTO
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		require.Equal(t, "m1", msg.ID)
		require.Equal(t, "hi", msg.Content)
		require.False(t, msg.Read)
	})

	t.Run("error", func(t *testing.T) {
		data, err := EncodeOutbound(ErrorEvent{Message: "消息发送失败"})
		require.NoError(t, err)
		require.JSONEq(t, `{"event":"error","data":{"message":"消息发送失败"}}`, string(data))
	})
}
