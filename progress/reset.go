package progress

import (
	"context"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
)

type ResetReport struct {
	QuizAttempts     int64 `json:"quiz_attempts"`
	LessonProgress   int64 `json:"lesson_progress"`
	ModuleProgress   int64 `json:"module_progress"`
	Certificates     int64 `json:"certificates"`
	EnrollmentsReset int64 `json:"enrollments_reset"`
}

// ResetUserProgress wipes a user's progress in one course so it can be retaken.
// Rows go in dependency order inside one transaction: quiz attempts, lesson
// progress, module progress, certificates, then the enrollment is reset.
// Deletes are hard deletes so the unique indexes accept fresh rows.
func (e *Engine) ResetUserProgress(ctx context.Context, userID, courseID uint) (*ResetReport, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	course, err := e.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	report := &ResetReport{}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		modules := tx.Unscoped().Model(&courseModels.Module{}).Select("id").Where("course_id = ?", course.ID)
		lessons := tx.Unscoped().Model(&courseModels.Lesson{}).Select("id").Where("module_id IN (?)", modules)
		quizzes := tx.Unscoped().Model(&courseModels.ModuleQuiz{}).Select("id").Where("module_id IN (?)", modules)

		res := tx.Unscoped().Where("user_id = ? AND quiz_id IN (?)", userID, quizzes).Delete(&courseModels.QuizAttempt{})
		if res.Error != nil {
			return res.Error
		}
		report.QuizAttempts = res.RowsAffected

		if res = tx.Unscoped().Where("user_id = ? AND lesson_id IN (?)", userID, lessons).Delete(&courseModels.LessonProgress{}); res.Error != nil {
			return res.Error
		}
		report.LessonProgress = res.RowsAffected

		if res = tx.Unscoped().Where("user_id = ? AND module_id IN (?)", userID, modules).Delete(&courseModels.ModuleProgress{}); res.Error != nil {
			return res.Error
		}
		report.ModuleProgress = res.RowsAffected

		if res = tx.Unscoped().Where("user_id = ? AND course_id = ?", userID, course.ID).Delete(&courseModels.Certificate{}); res.Error != nil {
			return res.Error
		}
		report.Certificates = res.RowsAffected

		res = tx.Model(&courseModels.Enrollment{}).
			Where("user_id = ? AND course_id = ?", userID, course.ID).
			Updates(map[string]interface{}{
				"status":            courseModels.EnrollmentActive,
				"progress":          0,
				"completed_lessons": 0,
				"completed_at":      nil,
			})
		if res.Error != nil {
			return res.Error
		}
		report.EnrollmentsReset = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("reset user progress", err)
	}

	e.log.Warn("user progress reset", "user_id", userID, "course_id", course.ID,
		"quiz_attempts", report.QuizAttempts, "certificates", report.Certificates)
	return report, nil
}
