package progress

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// issueCertificate inserts the certificate for (user, course, module-or-course).
// An existing certificate for the scope yields ErrDuplicateIssuance. A number
// collision is retried once with a fresh number.
func (e *Engine) issueCertificate(tx *gorm.DB, userID uint, course *courseModels.Course, moduleID *uint, score int, now time.Time) (*courseModels.Certificate, error) {
	var scope uint
	if moduleID != nil {
		scope = *moduleID
	}

	for attempt := 0; attempt < 2; attempt++ {
		cert := courseModels.Certificate{
			UserID:            userID,
			CourseID:          course.ID,
			ScopeModuleID:     scope,
			ModuleID:          moduleID,
			Type:              course.CertificateType,
			CertificateNumber: e.numbers(now),
			Score:             score,
			IssuedAt:          now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&cert)
		if res.Error != nil {
			return nil, apperr.Storage("issue certificate", res.Error)
		}
		if res.RowsAffected == 1 {
			return &cert, nil
		}

		var existing int64
		if err := tx.Model(&courseModels.Certificate{}).
			Where("user_id = ? AND course_id = ? AND scope_module_id = ?", userID, course.ID, scope).
			Count(&existing).Error; err != nil {
			return nil, apperr.Storage("check certificate", err)
		}
		if existing > 0 {
			return nil, apperr.ErrDuplicateIssuance
		}
		e.log.Warn("certificate number collision", "user_id", userID, "course_id", course.ID, "number", cert.CertificateNumber)
	}
	return nil, apperr.Storage("issue certificate", fmt.Errorf("certificate number collided twice for user %d course %d", userID, course.ID))
}

// issued absorbs the duplicate signal: a nil certificate means nothing new was issued.
func issued(cert *courseModels.Certificate, err error) (*courseModels.Certificate, error) {
	if errors.Is(err, apperr.ErrDuplicateIssuance) {
		return nil, nil
	}
	return cert, err
}

// bestPassedScore is the highest passing score of the user on the quiz, or 0.
func bestPassedScore(db *gorm.DB, userID, quizID uint) (int, error) {
	var best sql.NullInt64
	row := db.Model(&courseModels.QuizAttempt{}).
		Select("MAX(score)").
		Where("user_id = ? AND quiz_id = ? AND passed = ?", userID, quizID, true).
		Row()
	if err := row.Scan(&best); err != nil {
		return 0, err
	}
	return int(best.Int64), nil
}
