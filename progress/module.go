package progress

import (
	"context"
	"strconv"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModuleEvaluation struct {
	ModuleID       uint `json:"module_id"`
	Completed      bool `json:"completed"`
	NewlyCompleted bool `json:"newly_completed"`
	// Certificate is set only when this evaluation issued it.
	Certificate *courseModels.Certificate `json:"certificate,omitempty"`
	Course      *CourseEvaluation         `json:"course,omitempty"`
}

// moduleComplete applies the completion rule: every published, non-optional
// lesson is completed and, when the module has a required quiz, a passed attempt exists.
func moduleComplete(db *gorm.DB, userID uint, module *courseModels.Module) (bool, error) {
	required := db.Model(&courseModels.Lesson{}).
		Select("id").
		Where("module_id = ? AND is_published = ? AND is_optional = ?", module.ID, true, false)

	var total, done int64
	if err := db.Model(&courseModels.Lesson{}).
		Where("module_id = ? AND is_published = ? AND is_optional = ?", module.ID, true, false).
		Count(&total).Error; err != nil {
		return false, err
	}
	if total > 0 {
		if err := db.Model(&courseModels.LessonProgress{}).
			Where("user_id = ? AND is_completed = ? AND lesson_id IN (?)", userID, true, required).
			Count(&done).Error; err != nil {
			return false, err
		}
		if done < total {
			return false, nil
		}
	}

	quiz, err := moduleQuiz(db, module.ID)
	if err != nil || quiz == nil || !quiz.IsRequired {
		return err == nil, err
	}
	var passed int64
	if err := db.Model(&courseModels.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND passed = ?", userID, quiz.ID, true).
		Count(&passed).Error; err != nil {
		return false, err
	}
	return passed > 0, nil
}

func moduleQuiz(db *gorm.DB, moduleID uint) (*courseModels.ModuleQuiz, error) {
	var quizzes []courseModels.ModuleQuiz
	if err := db.Where("module_id = ?", moduleID).Limit(1).Find(&quizzes).Error; err != nil {
		return nil, err
	}
	if len(quizzes) == 0 {
		return nil, nil
	}
	return &quizzes[0], nil
}

// moduleScore is the best passing quiz score, or 100 for modules without a quiz.
func moduleScore(db *gorm.DB, userID uint, moduleID uint) (int, error) {
	quiz, err := moduleQuiz(db, moduleID)
	if err != nil || quiz == nil {
		return 100, err
	}
	return bestPassedScore(db, userID, quiz.ID)
}

// EvaluateModuleCompletion records module completion when the rule first holds
// and issues the module certificate for certifiable modules. Completion is
// monotonic: a module never reverts to incomplete outside an administrative reset.
func (e *Engine) EvaluateModuleCompletion(ctx context.Context, userID, moduleID uint) (*ModuleEvaluation, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	module, err := e.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	course, err := e.loadCourse(ctx, module.CourseID)
	if err != nil {
		return nil, err
	}

	eval := &ModuleEvaluation{ModuleID: module.ID}
	now := e.now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		complete, err := moduleComplete(tx, userID, module)
		if err != nil || !complete {
			return err
		}
		eval.Completed = true

		if eval.NewlyCompleted, err = markModuleComplete(tx, userID, module.ID, now); err != nil {
			return err
		}
		if !module.Certifiable {
			return nil
		}
		score, err := moduleScore(tx, userID, module.ID)
		if err != nil {
			return err
		}
		eval.Certificate, err = issued(e.issueCertificate(tx, userID, course, &module.ID, score, now))
		return err
	})
	if err != nil {
		return nil, apperr.Storage("evaluate module completion", err)
	}

	if eval.NewlyCompleted {
		e.log.Info("module completed", "user_id", userID, "module_id", module.ID, "course_id", course.ID)
		attrs := courseAttrs(course)
		attrs["module_id"] = strconv.FormatUint(uint64(module.ID), 10)
		e.emit(ctx, lifecycle.Event{Name: lifecycle.ModuleCompleted, UserID: userID, CourseID: course.ID, OccurredAt: now, Attrs: attrs})
	}
	if eval.Certificate != nil {
		e.emitCertificate(ctx, course, eval.Certificate)
	}

	if eval.Completed {
		if eval.Course, err = e.EvaluateCourseCompletion(ctx, userID, course.ID); err != nil {
			return nil, err
		}
	}
	return eval, nil
}

func markModuleComplete(tx *gorm.DB, userID, moduleID uint, now time.Time) (bool, error) {
	row := courseModels.ModuleProgress{UserID: userID, ModuleID: moduleID, IsCompleted: true, CompletedAt: &now}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil || res.RowsAffected == 1 {
		return res.RowsAffected == 1, res.Error
	}
	upd := tx.Model(&courseModels.ModuleProgress{}).
		Where("user_id = ? AND module_id = ? AND is_completed = ?", userID, moduleID, false).
		Updates(map[string]interface{}{"is_completed": true, "completed_at": now})
	return upd.RowsAffected > 0, upd.Error
}

func (e *Engine) emitCertificate(ctx context.Context, course *courseModels.Course, cert *courseModels.Certificate) {
	e.log.Info("certificate issued", "user_id", cert.UserID, "course_id", course.ID, "number", cert.CertificateNumber)
	attrs := courseAttrs(course)
	attrs["certificate_number"] = cert.CertificateNumber
	if cert.ModuleID != nil {
		attrs["module_id"] = strconv.FormatUint(uint64(*cert.ModuleID), 10)
	}
	e.emit(ctx, lifecycle.Event{Name: lifecycle.CertificateIssued, UserID: cert.UserID, CourseID: course.ID, OccurredAt: cert.IssuedAt, Attrs: attrs})
}
