package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	gorm.Model
	Name        string     `json:"name" gorm:"default:''"`
	Email       string     `json:"email" gorm:"uniqueIndex;size:191;not null"`
	Role        string     `json:"role" gorm:"size:16;default:'USER'"` // USER, ADMIN
	Timezone    string     `json:"timezone" gorm:"size:64;default:''"` // IANA name, empty uses APP_TIMEZONE
	Source      string     `json:"source" gorm:"size:64;default:''"`   // lead source of the first capture
	LastLoginAt *time.Time `json:"last_login_at"`
}
