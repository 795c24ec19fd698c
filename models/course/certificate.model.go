package course

import (
	"time"

	"gorm.io/gorm"
)

// Certificate represents an issued module or course certificate.
// ScopeModuleID mirrors ModuleID with 0 for course level so the unique index
// also holds for course certificates.
type Certificate struct {
	gorm.Model
	UserID            uint            `json:"user_id" gorm:"uniqueIndex:idx_certificate_scope;not null"`
	CourseID          uint            `json:"course_id" gorm:"uniqueIndex:idx_certificate_scope;not null"`
	ScopeModuleID     uint            `json:"-" gorm:"uniqueIndex:idx_certificate_scope;not null;default:0"`
	ModuleID          *uint           `json:"module_id"`
	Type              CertificateType `json:"type" gorm:"size:32"`
	CertificateNumber string          `json:"certificate_number" gorm:"uniqueIndex;size:64;not null"`
	Score             int             `json:"score"`
	IssuedAt          time.Time       `json:"issued_at"`
}
