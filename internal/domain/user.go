package domain

import "time"

type User struct {
	ID           UserID    `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"type:text;uniqueIndex:ux_users_username;not null"`
	PasswordHash []byte    `gorm:"type:bytea;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }
