package progress

import (
	"context"
	"math"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollUser enrolls the user in a published course. Enrolling twice is a no-op;
// the bool reports whether a new enrollment was created.
func (e *Engine) EnrollUser(ctx context.Context, userID, courseID uint) (*courseModels.Enrollment, bool, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, false, err
	}
	course, err := e.loadCourse(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	if !course.IsPublished {
		return nil, false, apperr.NotFound("course", courseID)
	}

	now := e.now()
	var enrollment courseModels.Enrollment
	var created bool
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if created, err = ensureEnrollment(tx, userID, courseID, now); err != nil {
			return err
		}
		if created {
			if err := recomputeEnrollment(tx, userID, courseID, now); err != nil {
				return err
			}
		}
		return tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	})
	if err != nil {
		return nil, false, apperr.Storage("enroll user", err)
	}

	if created {
		e.log.Info("user enrolled", "user_id", userID, "course_id", courseID)
		e.emit(ctx, lifecycle.Event{Name: lifecycle.CourseEnrolled, UserID: userID, CourseID: courseID, OccurredAt: now, Attrs: courseAttrs(course)})
	}
	return &enrollment, created, nil
}

func ensureEnrollment(tx *gorm.DB, userID, courseID uint, now time.Time) (bool, error) {
	enrollment := courseModels.Enrollment{
		UserID:         userID,
		CourseID:       courseID,
		Status:         courseModels.EnrollmentActive,
		EnrolledAt:     now,
		LastAccessedAt: &now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment)
	return res.RowsAffected == 1, res.Error
}

// publishedLessons scopes a lesson query to published lessons of published modules of the course.
func publishedLessons(tx *gorm.DB, courseID uint) *gorm.DB {
	return tx.Model(&courseModels.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id AND modules.deleted_at IS NULL").
		Where("modules.course_id = ? AND modules.is_published = ? AND lessons.is_published = ?", courseID, true, true)
}

// recomputeEnrollment refreshes the cached progress bar: completed over total
// published lessons. A completed enrollment stays at 100.
func recomputeEnrollment(tx *gorm.DB, userID, courseID uint, now time.Time) error {
	var total, completed int64
	if err := publishedLessons(tx, courseID).Count(&total).Error; err != nil {
		return err
	}
	if err := publishedLessons(tx, courseID).
		Joins("JOIN lesson_progresses ON lesson_progresses.lesson_id = lessons.id AND lesson_progresses.deleted_at IS NULL").
		Where("lesson_progresses.user_id = ? AND lesson_progresses.is_completed = ?", userID, true).
		Count(&completed).Error; err != nil {
		return err
	}

	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(completed)/float64(total)*10000) / 100
	}

	updates := map[string]interface{}{
		"completed_lessons": completed,
		"total_lessons":     total,
		"last_accessed_at":  now,
		"progress": gorm.Expr("CASE WHEN status = ? THEN 100 ELSE ? END",
			courseModels.EnrollmentCompleted, pct),
	}
	return tx.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(updates).Error
}
