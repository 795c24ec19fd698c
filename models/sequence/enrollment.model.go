package sequence

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusExited    = "EXITED"
)

// SequenceEnrollment is the per (user, sequence) state machine.
// CurrentStep is the index of the next step to dispatch.
type SequenceEnrollment struct {
	gorm.Model
	UserID       uint       `json:"user_id" gorm:"uniqueIndex:idx_sequence_enrollment;not null"`
	SequenceID   uint       `json:"sequence_id" gorm:"uniqueIndex:idx_sequence_enrollment;not null"`
	Status       string     `json:"status" gorm:"index;size:16;default:'ACTIVE'"`
	CurrentStep  int        `json:"current_step" gorm:"default:0"`
	TriggerEvent string     `json:"trigger_event" gorm:"size:64"`
	EnrolledAt   time.Time  `json:"enrolled_at"`
	LastSentAt   *time.Time `json:"last_sent_at"`
	LastEmailID  *uint      `json:"last_email_id"`
	CompletedAt  *time.Time `json:"completed_at"`
	ExitedAt     *time.Time `json:"exited_at"`
	ExitReason   string     `json:"exit_reason"`

	// StepEmailIDs are the step email ids in order at enrollment time. A
	// missing one means a step was deleted under the enrollment.
	StepEmailIDs datatypes.JSON `json:"step_email_ids"`
}

// SequenceEmailSend is the sent marker. (UserID, SequenceEmailID) is unique,
// which is what makes dispatch at-most-once per user and step.
type SequenceEmailSend struct {
	gorm.Model
	UserID          uint           `json:"user_id" gorm:"uniqueIndex:idx_sequence_send;not null"`
	SequenceEmailID uint           `json:"sequence_email_id" gorm:"uniqueIndex:idx_sequence_send;not null"`
	EnrollmentID    uint           `json:"enrollment_id" gorm:"index;not null"`
	StepIndex       int            `json:"step_index"`
	SentAt          time.Time      `json:"sent_at"`
	Skipped         bool           `json:"skipped" gorm:"default:false"` // inactive step, nothing dispatched
	DeliveryRef     string         `json:"delivery_ref"`
	Error           string         `json:"error"`
	TemplateVars    datatypes.JSON `json:"template_vars"`
}

const (
	EventReply = "REPLY"
	EventClick = "CLICK"
)

// EmailEvent records a reply to or a tracked click in a sequence email
type EmailEvent struct {
	gorm.Model
	UserID          uint      `json:"user_id" gorm:"index;not null"`
	SequenceID      uint      `json:"sequence_id" gorm:"index;not null"`
	SequenceEmailID *uint     `json:"sequence_email_id"`
	Type            string    `json:"type" gorm:"size:16;not null"`
	OccurredAt      time.Time `json:"occurred_at"`
}
