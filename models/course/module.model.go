package course

import "gorm.io/gorm"

// Module represents a section/module within a course
type Module struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"uniqueIndex:idx_module_course_order;not null"`
	OrderIndex  int    `json:"order_index" gorm:"uniqueIndex:idx_module_course_order;default:0"` // Module order in course
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published" gorm:"not null"`
	// Certifiable modules issue a module certificate on completion.
	// Orientation modules are imported with Certifiable=false.
	// Bools carry no column default so an explicit false survives Create.
	Certifiable bool        `json:"certifiable" gorm:"not null"`
	Lessons     []Lesson    `json:"lessons,omitempty" gorm:"foreignKey:ModuleID"`
	Quiz        *ModuleQuiz `json:"quiz,omitempty" gorm:"foreignKey:ModuleID"`
}
