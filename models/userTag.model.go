package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserTag is a segmentation fact that became true about a user.
// Tags are additive; (UserID, Tag) is unique.
type UserTag struct {
	gorm.Model
	UserID   uint           `json:"user_id" gorm:"uniqueIndex:idx_user_tag;not null"`
	Tag      string         `json:"tag" gorm:"uniqueIndex:idx_user_tag;size:191;not null"`
	Metadata datatypes.JSON `json:"metadata"`
}
