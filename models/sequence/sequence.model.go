package sequence

import "gorm.io/gorm"

// Sequence represents an automated drip email sequence
type Sequence struct {
	gorm.Model
	Slug        string `json:"slug" gorm:"uniqueIndex;size:191;not null"`
	Name        string `json:"name"`
	TriggerType string `json:"trigger_type" gorm:"index;size:64;not null"` // lifecycle event name
	// TriggerAfterDays parameterizes inactivity triggers (never logged in, abandoned learning).
	TriggerAfterDays int             `json:"trigger_after_days" gorm:"default:0"`
	IsActive         bool            `json:"is_active" gorm:"not null"`
	Priority         int             `json:"priority" gorm:"default:0"` // higher enrolls first
	ExitOnReply      bool            `json:"exit_on_reply" gorm:"default:false"`
	ExitOnClick      bool            `json:"exit_on_click" gorm:"default:false"`
	Emails           []SequenceEmail `json:"emails,omitempty" gorm:"foreignKey:SequenceID"`
}

// SequenceEmail is one step of a sequence. Its delay is relative to the previous step.
type SequenceEmail struct {
	gorm.Model
	SequenceID   uint   `json:"sequence_id" gorm:"uniqueIndex:idx_sequence_email_order;not null"`
	OrderIndex   int    `json:"order_index" gorm:"uniqueIndex:idx_sequence_email_order;not null"`
	Subject      string `json:"subject"`
	BodyTemplate string `json:"body_template" gorm:"type:text"`
	DelayDays    int    `json:"delay_days" gorm:"default:0"`
	DelayHours   int    `json:"delay_hours" gorm:"default:0"`
	SendAtHour   *int   `json:"send_at_hour"` // local hour 0-23, nil sends at any hour
	IsActive     bool   `json:"is_active" gorm:"not null"`
}
