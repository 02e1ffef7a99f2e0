package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation 会话主表，参与者固定为一个管理员和一个客户
type Conversation struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"` // 最后活跃时间

	Users    []User    `gorm:"many2many:conversation_users;" json:"users"`
	Messages []Message `gorm:"foreignKey:ConversationID;references:ID" json:"messages,omitempty"`
}

func (Conversation) TableName() string { return "conversations" }

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Client 返回唯一的非管理员参与者，数量不为 1 时返回 false
func (c *Conversation) Client() (*User, bool) {
	return SoleClient(c.Users)
}

// SoleClient 从参与者列表中找出唯一的非管理员
func SoleClient(users []User) (*User, bool) {
	var client *User
	for i := range users {
		if users[i].IsAdmin() {
			continue
		}
		if client != nil {
			return nil, false
		}
		client = &users[i]
	}
	return client, client != nil
}

// ConversationUser 会话成员关联表
type ConversationUser struct {
	ConversationID string `gorm:"primaryKey;type:varchar(36)"`
	UserID         string `gorm:"primaryKey;type:varchar(64);index"`
}

func (ConversationUser) TableName() string { return "conversation_users" }
