package progress

import (
	"context"
	"errors"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonCompletionResult struct {
	Progress       courseModels.LessonProgress `json:"progress"`
	NewlyCompleted bool                        `json:"newly_completed"`
	CourseProgress float64                     `json:"course_progress"`
	Module         *ModuleEvaluation           `json:"module"`
}

type LessonVisit struct {
	TimeSpent int // seconds
	WatchTime int // seconds
}

// lessonContext loads a lesson together with its module and course. Lessons
// that are unpublished, or whose module or course is, count as missing.
func (e *Engine) lessonContext(ctx context.Context, lessonID uint) (*courseModels.Lesson, *courseModels.Module, *courseModels.Course, error) {
	var lesson courseModels.Lesson
	if err := e.db.WithContext(ctx).First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apperr.NotFound("lesson", lessonID)
		}
		return nil, nil, nil, apperr.Storage("load lesson", err)
	}
	module, err := e.loadModule(ctx, lesson.ModuleID)
	if err != nil {
		return nil, nil, nil, err
	}
	course, err := e.loadCourse(ctx, module.CourseID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !lesson.IsPublished || !module.IsPublished || !course.IsPublished {
		return nil, nil, nil, apperr.NotFound("lesson", lessonID)
	}
	return &lesson, module, course, nil
}

// RecordLessonCompletion marks the lesson complete for the user. Completing an
// already completed lesson keeps the original completedAt. The user is enrolled
// in the course when no enrollment exists yet.
func (e *Engine) RecordLessonCompletion(ctx context.Context, userID, lessonID uint) (*LessonCompletionResult, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	lesson, module, course, err := e.lessonContext(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	result := &LessonCompletionResult{}
	var enrolled bool
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if enrolled, err = ensureEnrollment(tx, userID, course.ID, now); err != nil {
			return err
		}

		row := courseModels.LessonProgress{
			UserID:      userID,
			LessonID:    lesson.ID,
			IsCompleted: true,
			CompletedAt: &now,
			VisitCount:  1,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		result.NewlyCompleted = res.RowsAffected == 1
		if !result.NewlyCompleted {
			upd := tx.Model(&courseModels.LessonProgress{}).
				Where("user_id = ? AND lesson_id = ? AND is_completed = ?", userID, lesson.ID, false).
				Updates(map[string]interface{}{"is_completed": true, "completed_at": now})
			if upd.Error != nil {
				return upd.Error
			}
			result.NewlyCompleted = upd.RowsAffected > 0
		}

		if err := recomputeEnrollment(tx, userID, course.ID, now); err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&result.Progress).Error; err != nil {
			return err
		}
		var enrollment courseModels.Enrollment
		if err := tx.Where("user_id = ? AND course_id = ?", userID, course.ID).First(&enrollment).Error; err != nil {
			return err
		}
		result.CourseProgress = enrollment.Progress
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("record lesson completion", err)
	}

	if enrolled {
		e.emit(ctx, lifecycle.Event{Name: lifecycle.CourseEnrolled, UserID: userID, CourseID: course.ID, OccurredAt: now, Attrs: courseAttrs(course)})
	}
	if result.NewlyCompleted {
		e.log.Debug("lesson completed", "user_id", userID, "lesson_id", lesson.ID, "progress", result.CourseProgress)
	}

	result.Module, err = e.EvaluateModuleCompletion(ctx, userID, module.ID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordLessonVisit counts a visit and accumulates time spent. It never changes completion.
func (e *Engine) RecordLessonVisit(ctx context.Context, userID, lessonID uint, visit LessonVisit) (*courseModels.LessonProgress, error) {
	if visit.TimeSpent < 0 || visit.WatchTime < 0 {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "time_spent", Message: "must not be negative"}}}
	}
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	lesson, _, course, err := e.lessonContext(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var row courseModels.LessonProgress
	var enrolled bool
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if enrolled, err = ensureEnrollment(tx, userID, course.ID, now); err != nil {
			return err
		}
		first := courseModels.LessonProgress{UserID: userID, LessonID: lesson.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&first).Error; err != nil {
			return err
		}
		if err := tx.Model(&courseModels.LessonProgress{}).
			Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).
			Updates(map[string]interface{}{
				"visit_count": gorm.Expr("visit_count + ?", 1),
				"time_spent":  gorm.Expr("time_spent + ?", visit.TimeSpent),
				"watch_time":  gorm.Expr("watch_time + ?", visit.WatchTime),
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&courseModels.Enrollment{}).
			Where("user_id = ? AND course_id = ?", userID, course.ID).
			Update("last_accessed_at", now).Error; err != nil {
			return err
		}
		if enrolled {
			if err := recomputeEnrollment(tx, userID, course.ID, now); err != nil {
				return err
			}
		}
		return tx.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&row).Error
	})
	if err != nil {
		return nil, apperr.Storage("record lesson visit", err)
	}

	if enrolled {
		e.emit(ctx, lifecycle.Event{Name: lifecycle.CourseEnrolled, UserID: userID, CourseID: course.ID, OccurredAt: now, Attrs: courseAttrs(course)})
	}
	return &row, nil
}
