package course

import "gorm.io/gorm"

// CertificateType decides which certificate a course issues.
type CertificateType string

const (
	CertificateCompletion    CertificateType = "COMPLETION"
	CertificateCertification CertificateType = "CERTIFICATION"
	CertificateMiniDiploma   CertificateType = "MINI_DIPLOMA"
)

// Course represents a learning course
type Course struct {
	gorm.Model
	Title           string          `json:"title"`
	Slug            string          `json:"slug" gorm:"uniqueIndex;size:191;not null"`
	Description     string          `json:"description"`
	CertificateType CertificateType `json:"certificate_type" gorm:"size:32;default:'COMPLETION'"`
	IsPublished     bool            `json:"is_published" gorm:"default:false"`
	Modules         []Module        `json:"modules,omitempty" gorm:"foreignKey:CourseID"`
}
