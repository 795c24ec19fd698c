package models

import (
	"time"

	"gorm.io/gorm"
)

// LoginTracking is one sign-in reported by the auth service.
type LoginTracking struct {
	gorm.Model
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	IPAddress  string    `json:"ip_address" gorm:"size:64"`
	Device     string    `json:"device" gorm:"size:255"`
	LoggedInAt time.Time `json:"logged_in_at"`
}
