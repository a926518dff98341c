package model

import "time"

// User represents a registered account.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex:idx_users_username;size:255;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex:idx_users_email;size:255;not null"`
	Password  string    `json:"-" gorm:"size:255;not null"` // argon2id hash, never exposed
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
