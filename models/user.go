package models

import (
	"strings"
	"time"
)

// User is a bot account, created the first time a platform user talks to the bot.
// ExternalID is the messaging platform's user id and never changes.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID int64     `gorm:"uniqueIndex;not null" json:"external_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	IsMaster   bool      `gorm:"not null;default:false" json:"is_master"`
	IsAdmin    bool      `gorm:"not null;default:false" json:"is_admin"`
	Mute       bool      `gorm:"not null;default:false" json:"mute"` // opted out of announcements
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DisplayName renders "First Last (@username)", dropping whatever parts are empty.
func (u *User) DisplayName() string {
	return displayName(u.FirstName, u.LastName, u.Username)
}

func displayName(first, last, username string) string {
	name := strings.TrimSpace(first + " " + last)
	if username == "" {
		return name
	}
	if name == "" {
		return "@" + username
	}
	return name + " (@" + username + ")"
}
