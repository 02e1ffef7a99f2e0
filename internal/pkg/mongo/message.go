package mongo

import (
	"time"
)

// ArchivedMessage 消息归档副本，_id 复用 MySQL 中的消息 ID
type ArchivedMessage struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversationId"`
	SenderID       string    `bson:"sender_id" json:"senderId"`
	Content        string    `bson:"content" json:"content"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	ArchivedAt     time.Time `bson:"archived_at" json:"archivedAt"`
}
