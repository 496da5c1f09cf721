package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an account that authors posts and comments and follows other users.
// Passwords are stored as bcrypt hashes only. UsernameLower carries the unique
// index so names differing only in case cannot coexist.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:150;not null" json:"username"`
	UsernameLower string    `gorm:"size:150;not null;uniqueIndex" json:"-"`
	PasswordHash  string    `gorm:"size:255" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"-"`
}

// NormalizeUsername is the form usernames are compared and indexed in.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// BeforeSave hook trims the username and keeps UsernameLower in step with it.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Username = strings.TrimSpace(u.Username)
	u.UsernameLower = NormalizeUsername(u.Username)
	return nil
}
