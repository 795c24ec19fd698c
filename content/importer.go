package content

import (
	"context"
	"errors"
	"os"

	"gorm.io/gorm"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
)

const (
	defaultPassingScore = 70
	defaultPoints       = 1
)

// Report counts what an import touched.
type Report struct {
	Courses            int `json:"courses"`
	Modules            int `json:"modules"`
	Lessons            int `json:"lessons"`
	Quizzes            int `json:"quizzes"`
	Sequences          int `json:"sequences"`
	Emails             int `json:"emails"`
	UnpublishedLessons int `json:"unpublished_lessons"`
	DeactivatedEmails  int `json:"deactivated_emails"`
}

// Importer upserts bundles keyed by slug and position. Re-importing the same
// bundle leaves the set of rows unchanged. Modules, lessons and emails missing
// from a bundle are unpublished or deactivated, never deleted.
type Importer struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImporter(db *gorm.DB, log *logger.Logger) *Importer {
	return &Importer{db: db, log: log.With("service", "content")}
}

func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, b)
}

// Import writes the whole bundle in one transaction.
func (im *Importer) Import(ctx context.Context, b *Bundle) (*Report, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	rep := &Report{}
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range b.Courses {
			if err := importCourse(tx, &b.Courses[i], rep); err != nil {
				return err
			}
		}
		for i := range b.Sequences {
			if err := importSequence(tx, &b.Sequences[i], rep); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("import content", err)
	}
	im.log.Info("content imported",
		"courses", rep.Courses, "modules", rep.Modules, "lessons", rep.Lessons,
		"sequences", rep.Sequences, "emails", rep.Emails,
		"unpublished_lessons", rep.UnpublishedLessons)
	return rep, nil
}

// lookup finds a row including soft-deleted ones.
func lookup(tx *gorm.DB, dst interface{}, query string, args ...interface{}) (bool, error) {
	err := tx.Unscoped().Where(query, args...).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// save creates a new row or rewrites an existing one, restoring it if soft-deleted.
func save(tx *gorm.DB, found bool, row interface{}) error {
	if !found {
		return tx.Create(row).Error
	}
	return tx.Unscoped().Save(row).Error
}

func importCourse(tx *gorm.DB, in *CourseSpec, rep *Report) error {
	var course courseModels.Course
	found, err := lookup(tx, &course, "slug = ?", in.Slug)
	if err != nil {
		return err
	}
	course.Slug = in.Slug
	course.Title = in.Title
	course.Description = in.Description
	course.CertificateType = courseModels.CertificateCompletion
	if in.CertificateType != "" {
		course.CertificateType = courseModels.CertificateType(in.CertificateType)
	}
	course.IsPublished = boolOr(in.Published, true)
	course.DeletedAt = gorm.DeletedAt{}
	if err := save(tx, found, &course); err != nil {
		return err
	}
	rep.Courses++

	for i := range in.Modules {
		if err := importModule(tx, course.ID, i, &in.Modules[i], rep); err != nil {
			return err
		}
	}
	return tx.Model(&courseModels.Module{}).
		Where("course_id = ? AND order_index >= ? AND is_published = ?", course.ID, len(in.Modules), true).
		Update("is_published", false).Error
}

func importModule(tx *gorm.DB, courseID uint, order int, in *ModuleSpec, rep *Report) error {
	var module courseModels.Module
	found, err := lookup(tx, &module, "course_id = ? AND order_index = ?", courseID, order)
	if err != nil {
		return err
	}
	module.CourseID = courseID
	module.OrderIndex = order
	module.Title = in.Title
	module.Description = in.Description
	module.IsPublished = boolOr(in.Published, true)
	module.Certifiable = boolOr(in.Certifiable, true)
	module.DeletedAt = gorm.DeletedAt{}
	if err := save(tx, found, &module); err != nil {
		return err
	}
	rep.Modules++

	for i := range in.Lessons {
		if err := importLesson(tx, module.ID, i, &in.Lessons[i]); err != nil {
			return err
		}
		rep.Lessons++
	}
	res := tx.Model(&courseModels.Lesson{}).
		Where("module_id = ? AND order_index >= ? AND is_published = ?", module.ID, len(in.Lessons), true).
		Update("is_published", false)
	if res.Error != nil {
		return res.Error
	}
	rep.UnpublishedLessons += int(res.RowsAffected)

	if in.Quiz == nil {
		return tx.Where("module_id = ?", module.ID).Delete(&courseModels.ModuleQuiz{}).Error
	}
	if err := importQuiz(tx, module.ID, in.Quiz); err != nil {
		return err
	}
	rep.Quizzes++
	return nil
}

func importLesson(tx *gorm.DB, moduleID uint, order int, in *LessonSpec) error {
	var lesson courseModels.Lesson
	found, err := lookup(tx, &lesson, "module_id = ? AND order_index = ?", moduleID, order)
	if err != nil {
		return err
	}
	lesson.ModuleID = moduleID
	lesson.OrderIndex = order
	lesson.Title = in.Title
	lesson.Description = in.Description
	lesson.VideoURL = in.VideoURL
	lesson.TextContent = in.Text
	lesson.IsOptional = in.Optional
	lesson.IsFreePreview = in.FreePreview
	lesson.IsPublished = boolOr(in.Published, true)
	lesson.DeletedAt = gorm.DeletedAt{}
	return save(tx, found, &lesson)
}

// importQuiz rewrites questions and answers in place by position. Questions
// beyond the bundle are soft-deleted so they stop counting towards the score.
func importQuiz(tx *gorm.DB, moduleID uint, in *QuizSpec) error {
	var quiz courseModels.ModuleQuiz
	found, err := lookup(tx, &quiz, "module_id = ?", moduleID)
	if err != nil {
		return err
	}
	quiz.ModuleID = moduleID
	quiz.Title = in.Title
	quiz.PassingScore = intOr(in.PassingScore, defaultPassingScore)
	quiz.MaxAttempts = in.MaxAttempts
	quiz.IsRequired = boolOr(in.Required, true)
	quiz.DeletedAt = gorm.DeletedAt{}
	if err := save(tx, found, &quiz); err != nil {
		return err
	}

	for i, qs := range in.Questions {
		var question courseModels.QuizQuestion
		found, err := lookup(tx, &question, "quiz_id = ? AND order_index = ?", quiz.ID, i)
		if err != nil {
			return err
		}
		question.QuizID = quiz.ID
		question.OrderIndex = i
		question.Prompt = qs.Prompt
		question.Points = qs.Points
		if question.Points == 0 {
			question.Points = defaultPoints
		}
		question.DeletedAt = gorm.DeletedAt{}
		if err := save(tx, found, &question); err != nil {
			return err
		}

		for j, as := range qs.Answers {
			var answer courseModels.QuizAnswer
			found, err := lookup(tx, &answer, "question_id = ? AND order_index = ?", question.ID, j)
			if err != nil {
				return err
			}
			answer.QuestionID = question.ID
			answer.OrderIndex = j
			answer.Text = as.Text
			answer.IsCorrect = as.Correct
			answer.DeletedAt = gorm.DeletedAt{}
			if err := save(tx, found, &answer); err != nil {
				return err
			}
		}
		if err := tx.Where("question_id = ? AND order_index >= ?", question.ID, len(qs.Answers)).
			Delete(&courseModels.QuizAnswer{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("quiz_id = ? AND order_index >= ?", quiz.ID, len(in.Questions)).
		Delete(&courseModels.QuizQuestion{}).Error
}

func importSequence(tx *gorm.DB, in *SequenceSpec, rep *Report) error {
	var seq sequenceModels.Sequence
	found, err := lookup(tx, &seq, "slug = ?", in.Slug)
	if err != nil {
		return err
	}
	seq.Slug = in.Slug
	seq.Name = in.Name
	if seq.Name == "" {
		seq.Name = in.Slug
	}
	seq.TriggerType = in.Trigger
	seq.TriggerAfterDays = in.TriggerAfterDays
	seq.IsActive = boolOr(in.Active, true)
	seq.Priority = in.Priority
	seq.ExitOnReply = in.ExitOnReply
	seq.ExitOnClick = in.ExitOnClick
	seq.DeletedAt = gorm.DeletedAt{}
	if err := save(tx, found, &seq); err != nil {
		return err
	}
	rep.Sequences++

	for i, es := range in.Emails {
		var email sequenceModels.SequenceEmail
		found, err := lookup(tx, &email, "sequence_id = ? AND order_index = ?", seq.ID, i)
		if err != nil {
			return err
		}
		email.SequenceID = seq.ID
		email.OrderIndex = i
		email.Subject = es.Subject
		email.BodyTemplate = es.Body
		email.DelayDays = es.DelayDays
		email.DelayHours = es.DelayHours
		email.SendAtHour = es.SendAtHour
		email.IsActive = boolOr(es.Active, true)
		email.DeletedAt = gorm.DeletedAt{}
		if err := save(tx, found, &email); err != nil {
			return err
		}
		rep.Emails++
	}

	// Step indexes of running enrollments stay valid: trailing steps are
	// switched off rather than removed.
	res := tx.Model(&sequenceModels.SequenceEmail{}).
		Where("sequence_id = ? AND order_index >= ? AND is_active = ?", seq.ID, len(in.Emails), true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	rep.DeactivatedEmails += int(res.RowsAffected)
	return nil
}
