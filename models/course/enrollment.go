package course

import (
	"time"

	"gorm.io/gorm"
)

const (
	EnrollmentActive    = "ACTIVE"
	EnrollmentCompleted = "COMPLETED"
)

// Enrollment tracks a user's enrollment in a course with progress.
// Progress is a cached projection recomputed on every lesson completion.
type Enrollment struct {
	gorm.Model
	UserID           uint       `json:"user_id" gorm:"uniqueIndex:idx_enrollment_user_course;not null"`
	CourseID         uint       `json:"course_id" gorm:"uniqueIndex:idx_enrollment_user_course;not null"`
	Status           string     `json:"status" gorm:"size:32;default:'ACTIVE'"`
	Progress         float64    `json:"progress" gorm:"default:0"` // Completion percentage (0-100)
	CompletedLessons int        `json:"completed_lessons" gorm:"default:0"`
	TotalLessons     int        `json:"total_lessons" gorm:"default:0"`
	EnrolledAt       time.Time  `json:"enrolled_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	LastAccessedAt   *time.Time `json:"last_accessed_at"`
}
