package database

import (
	"Portal/internal/model"
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate 同步表结构，会话成员使用自定义关联表
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Conversation{}, "Users", &model.ConversationUser{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.ConversationUser{},
		&model.Message{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
