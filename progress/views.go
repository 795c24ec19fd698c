package progress

import (
	"context"
	"errors"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
)

// Read models returned to the HTTP layer.

type LessonView struct {
	LessonID      uint       `json:"lesson_id"`
	Title         string     `json:"title"`
	OrderIndex    int        `json:"order_index"`
	IsOptional    bool       `json:"is_optional"`
	IsFreePreview bool       `json:"is_free_preview"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type QuizView struct {
	QuizID       uint `json:"quiz_id"`
	PassingScore int  `json:"passing_score"`
	MaxAttempts  *int `json:"max_attempts"`
	IsRequired   bool `json:"is_required"`
	AttemptsUsed int  `json:"attempts_used"`
	BestScore    int  `json:"best_score"`
	Passed       bool `json:"passed"`
}

type ModuleView struct {
	ModuleID    uint         `json:"module_id"`
	Title       string       `json:"title"`
	OrderIndex  int          `json:"order_index"`
	Certifiable bool         `json:"certifiable"`
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Lessons     []LessonView `json:"lessons"`
	Quiz        *QuizView    `json:"quiz,omitempty"`
}

type CertificateView struct {
	CertificateNumber string                       `json:"certificate_number"`
	CourseID          uint                         `json:"course_id"`
	CourseSlug        string                       `json:"course_slug"`
	CourseTitle       string                       `json:"course_title"`
	ModuleID          *uint                        `json:"module_id"`
	Type              courseModels.CertificateType `json:"type"`
	Score             int                          `json:"score"`
	IssuedAt          time.Time                    `json:"issued_at"`
}

type EnrollmentView struct {
	CourseID         uint       `json:"course_id"`
	CourseSlug       string     `json:"course_slug"`
	CourseTitle      string     `json:"course_title"`
	Status           string     `json:"status"`
	Progress         float64    `json:"progress"`
	CompletedLessons int        `json:"completed_lessons"`
	TotalLessons     int        `json:"total_lessons"`
	EnrolledAt       time.Time  `json:"enrolled_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	LastAccessedAt   *time.Time `json:"last_accessed_at,omitempty"`
}

type CourseProgressView struct {
	CourseID        uint                         `json:"course_id"`
	Slug            string                       `json:"slug"`
	Title           string                       `json:"title"`
	CertificateType courseModels.CertificateType `json:"certificate_type"`
	Enrollment      *EnrollmentView              `json:"enrollment"`
	Modules         []ModuleView                 `json:"modules"`
	Certificates    []CertificateView            `json:"certificates"`
}

// CourseProgress projects the user's standing in one course. Unpublished
// content is left out.
func (e *Engine) CourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgressView, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	var course courseModels.Course
	err := e.db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_published = ?", true).Order("order_index")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_published = ?", true).Order("order_index")
		}).
		Preload("Modules.Quiz").
		First(&course, courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("course", courseID)
		}
		return nil, apperr.Storage("load course", err)
	}

	db := e.db.WithContext(ctx)
	view := &CourseProgressView{
		CourseID:        course.ID,
		Slug:            course.Slug,
		Title:           course.Title,
		CertificateType: course.CertificateType,
		Modules:         make([]ModuleView, 0, len(course.Modules)),
	}

	var lessonIDs, moduleIDs []uint
	for _, m := range course.Modules {
		moduleIDs = append(moduleIDs, m.ID)
		for _, l := range m.Lessons {
			lessonIDs = append(lessonIDs, l.ID)
		}
	}

	lessonRows := map[uint]courseModels.LessonProgress{}
	if len(lessonIDs) > 0 {
		var rows []courseModels.LessonProgress
		if err := db.Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).Find(&rows).Error; err != nil {
			return nil, apperr.Storage("load lesson progress", err)
		}
		for _, r := range rows {
			lessonRows[r.LessonID] = r
		}
	}
	moduleRows := map[uint]courseModels.ModuleProgress{}
	if len(moduleIDs) > 0 {
		var rows []courseModels.ModuleProgress
		if err := db.Where("user_id = ? AND module_id IN ?", userID, moduleIDs).Find(&rows).Error; err != nil {
			return nil, apperr.Storage("load module progress", err)
		}
		for _, r := range rows {
			moduleRows[r.ModuleID] = r
		}
	}

	for _, m := range course.Modules {
		mv := ModuleView{
			ModuleID:    m.ID,
			Title:       m.Title,
			OrderIndex:  m.OrderIndex,
			Certifiable: m.Certifiable,
			Lessons:     make([]LessonView, 0, len(m.Lessons)),
		}
		if mp, ok := moduleRows[m.ID]; ok {
			mv.Completed, mv.CompletedAt = mp.IsCompleted, mp.CompletedAt
		}
		for _, l := range m.Lessons {
			lv := LessonView{
				LessonID:      l.ID,
				Title:         l.Title,
				OrderIndex:    l.OrderIndex,
				IsOptional:    l.IsOptional,
				IsFreePreview: l.IsFreePreview,
			}
			if lp, ok := lessonRows[l.ID]; ok {
				lv.Completed, lv.CompletedAt = lp.IsCompleted, lp.CompletedAt
			}
			mv.Lessons = append(mv.Lessons, lv)
		}
		if m.Quiz != nil {
			qv, err := quizView(db, userID, m.Quiz)
			if err != nil {
				return nil, apperr.Storage("load quiz attempts", err)
			}
			mv.Quiz = qv
		}
		view.Modules = append(view.Modules, mv)
	}

	enrollments, err := e.enrollmentViews(db.Where("enrollments.course_id = ?", course.ID), userID)
	if err != nil {
		return nil, err
	}
	if len(enrollments) > 0 {
		view.Enrollment = &enrollments[0]
	}
	if view.Certificates, err = e.certificateViews(db.Where("certificates.course_id = ?", course.ID), userID); err != nil {
		return nil, err
	}
	return view, nil
}

func quizView(db *gorm.DB, userID uint, quiz *courseModels.ModuleQuiz) (*QuizView, error) {
	qv := &QuizView{
		QuizID:       quiz.ID,
		PassingScore: quiz.PassingScore,
		MaxAttempts:  quiz.MaxAttempts,
		IsRequired:   quiz.IsRequired,
	}
	var attempts []courseModels.QuizAttempt
	if err := db.Where("user_id = ? AND quiz_id = ?", userID, quiz.ID).Find(&attempts).Error; err != nil {
		return nil, err
	}
	qv.AttemptsUsed = len(attempts)
	for _, a := range attempts {
		if a.Score > qv.BestScore {
			qv.BestScore = a.Score
		}
		qv.Passed = qv.Passed || a.Passed
	}
	return qv, nil
}

// ListCertificates returns every certificate of the user, newest first.
func (e *Engine) ListCertificates(ctx context.Context, userID uint) ([]CertificateView, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.certificateViews(e.db.WithContext(ctx), userID)
}

// ListEnrollments returns the user's course enrollments, most recent first.
func (e *Engine) ListEnrollments(ctx context.Context, userID uint) ([]EnrollmentView, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.enrollmentViews(e.db.WithContext(ctx), userID)
}

func (e *Engine) certificateViews(db *gorm.DB, userID uint) ([]CertificateView, error) {
	out := []CertificateView{}
	err := db.Model(&courseModels.Certificate{}).
		Select("certificates.certificate_number, certificates.course_id, courses.slug AS course_slug, courses.title AS course_title, " +
			"certificates.module_id, certificates.type, certificates.score, certificates.issued_at").
		Joins("JOIN courses ON courses.id = certificates.course_id").
		Where("certificates.user_id = ?", userID).
		Order("certificates.issued_at DESC, certificates.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("list certificates", err)
	}
	return out, nil
}

func (e *Engine) enrollmentViews(db *gorm.DB, userID uint) ([]EnrollmentView, error) {
	out := []EnrollmentView{}
	err := db.Model(&courseModels.Enrollment{}).
		Select("enrollments.course_id, courses.slug AS course_slug, courses.title AS course_title, enrollments.status, " +
			"enrollments.progress, enrollments.completed_lessons, enrollments.total_lessons, enrollments.enrolled_at, " +
			"enrollments.completed_at, enrollments.last_accessed_at").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("enrollments.user_id = ?", userID).
		Order("enrollments.enrolled_at DESC, enrollments.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("list enrollments", err)
	}
	return out, nil
}
