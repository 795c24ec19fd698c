package course

import "gorm.io/gorm"

// Lesson is a unit of content within a module
type Lesson struct {
	gorm.Model
	ModuleID      uint   `json:"module_id" gorm:"uniqueIndex:idx_lesson_module_order;not null"`
	OrderIndex    int    `json:"order_index" gorm:"uniqueIndex:idx_lesson_module_order;default:0"` // Order within module
	Title         string `json:"title"`
	Description   string `json:"description"`
	VideoURL      string `json:"video_url"`
	TextContent   string `json:"text_content" gorm:"type:text"`
	IsPublished   bool   `json:"is_published" gorm:"default:false"`
	IsFreePreview bool   `json:"is_free_preview" gorm:"default:false"`
	// Optional lessons count towards the progress bar but never gate module completion.
	IsOptional bool `json:"is_optional" gorm:"default:false"`
}
