package progress

import (
	"context"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
)

type CourseEvaluation struct {
	CourseID       uint                      `json:"course_id"`
	Completed      bool                      `json:"completed"`
	NewlyCompleted bool                      `json:"newly_completed"`
	Certificate    *courseModels.Certificate `json:"certificate,omitempty"`
}

// EvaluateCourseCompletion completes the enrollment and issues the course-level
// certificate once every published module of the course is complete.
func (e *Engine) EvaluateCourseCompletion(ctx context.Context, userID, courseID uint) (*CourseEvaluation, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	course, err := e.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	eval := &CourseEvaluation{CourseID: course.ID}
	now := e.now()
	var enrolled bool
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var modules []courseModels.Module
		if err := tx.Where("course_id = ? AND is_published = ?", course.ID, true).
			Order("order_index").Find(&modules).Error; err != nil {
			return err
		}
		if len(modules) == 0 {
			return nil
		}

		scores, quizzes := 0, 0
		for i := range modules {
			complete, err := moduleComplete(tx, userID, &modules[i])
			if err != nil || !complete {
				return err
			}
			quiz, err := moduleQuiz(tx, modules[i].ID)
			if err != nil {
				return err
			}
			if quiz != nil {
				best, err := bestPassedScore(tx, userID, quiz.ID)
				if err != nil {
					return err
				}
				scores += best
				quizzes++
			}
		}
		eval.Completed = true

		if enrolled, err = ensureEnrollment(tx, userID, course.ID, now); err != nil {
			return err
		}
		upd := tx.Model(&courseModels.Enrollment{}).
			Where("user_id = ? AND course_id = ? AND status <> ?", userID, course.ID, courseModels.EnrollmentCompleted).
			Updates(map[string]interface{}{
				"status":           courseModels.EnrollmentCompleted,
				"completed_at":     now,
				"progress":         100,
				"last_accessed_at": now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		eval.NewlyCompleted = upd.RowsAffected > 0

		score := 100
		if quizzes > 0 {
			score = (scores*2 + quizzes) / (2 * quizzes)
		}
		eval.Certificate, err = issued(e.issueCertificate(tx, userID, course, nil, score, now))
		return err
	})
	if err != nil {
		return nil, apperr.Storage("evaluate course completion", err)
	}

	if enrolled {
		e.emit(ctx, lifecycle.Event{Name: lifecycle.CourseEnrolled, UserID: userID, CourseID: course.ID, OccurredAt: now, Attrs: courseAttrs(course)})
	}
	if eval.NewlyCompleted {
		e.log.Info("course completed", "user_id", userID, "course_id", course.ID)
		e.emit(ctx, lifecycle.Event{Name: lifecycle.CourseCompleted, UserID: userID, CourseID: course.ID, OccurredAt: now, Attrs: courseAttrs(course)})
		if course.CertificateType == courseModels.CertificateMiniDiploma {
			e.emit(ctx, lifecycle.Event{Name: lifecycle.MiniDiplomaCompleted, UserID: userID, CourseID: course.ID, OccurredAt: now, Attrs: courseAttrs(course)})
		}
	}
	if eval.Certificate != nil {
		e.emitCertificate(ctx, course, eval.Certificate)
	}
	return eval, nil
}
