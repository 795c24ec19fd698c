package course

import (
	"time"

	"gorm.io/gorm"
)

// LessonProgress tracks a user's visits to and completion of a lesson
type LessonProgress struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"uniqueIndex:idx_lesson_progress_user_lesson;not null"`
	LessonID    uint       `json:"lesson_id" gorm:"uniqueIndex:idx_lesson_progress_user_lesson;not null"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"` // set whenever IsCompleted is true
	TimeSpent   int        `json:"time_spent" gorm:"default:0"` // seconds
	WatchTime   int        `json:"watch_time" gorm:"default:0"` // seconds
	VisitCount  int        `json:"visit_count" gorm:"default:0"`
}

// ModuleProgress caches module completion derived from lesson progress and quiz attempts
type ModuleProgress struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"uniqueIndex:idx_module_progress_user_module;not null"`
	ModuleID    uint       `json:"module_id" gorm:"uniqueIndex:idx_module_progress_user_module;not null"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
}
