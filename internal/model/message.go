package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message 会话消息
type Message struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index:idx_conv_read;not null" json:"conversationId"`
	SenderID       string    `gorm:"type:varchar(64);index;not null" json:"senderId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Read           bool      `gorm:"index:idx_conv_read;not null;default:false" json:"read"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`

	Sender *User `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
