package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ModuleQuiz gates completion of the module it belongs to
type ModuleQuiz struct {
	gorm.Model
	ModuleID     uint           `json:"module_id" gorm:"uniqueIndex;not null"`
	Title        string         `json:"title"`
	PassingScore int            `json:"passing_score" gorm:"not null"` // percentage 0-100
	MaxAttempts  *int           `json:"max_attempts"`                    // nil means unlimited
	IsRequired   bool           `json:"is_required" gorm:"not null"`
	Questions    []QuizQuestion `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// QuizQuestion is a question in a module quiz
type QuizQuestion struct {
	gorm.Model
	QuizID     uint         `json:"quiz_id" gorm:"index;not null"`
	OrderIndex int          `json:"order_index" gorm:"default:0"`
	Prompt     string       `json:"prompt" gorm:"type:text"`
	Points     int          `json:"points" gorm:"default:1"`
	Answers    []QuizAnswer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}

// QuizAnswer represents an option for a quiz question
type QuizAnswer struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"-" gorm:"default:false"`
}

// QuizAttempt represents a student's submission of a module quiz
type QuizAttempt struct {
	gorm.Model
	UserID        uint           `json:"user_id" gorm:"uniqueIndex:idx_attempt_user_quiz_number;not null"`
	QuizID        uint           `json:"quiz_id" gorm:"uniqueIndex:idx_attempt_user_quiz_number;not null"`
	AttemptNumber int            `json:"attempt_number" gorm:"uniqueIndex:idx_attempt_user_quiz_number;not null"`
	Score         int            `json:"score"` // percentage 0-100
	Passed        bool           `json:"passed" gorm:"default:false"`
	Answers       datatypes.JSON `json:"answers"` // selected answer ids keyed by question id
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at"`
}
