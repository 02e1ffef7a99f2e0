package model

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

type User struct {
	ID        string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email     string  `gorm:"type:varchar(255);uniqueIndex:idx_email" json:"email"`
	Name      *string `gorm:"type:varchar(100)" json:"name"`
	Role      string  `gorm:"type:varchar(16);not null;default:client" json:"role"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName 无昵称时回退为 ID
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.ID
}
