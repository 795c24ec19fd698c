package testutil

import (
	"testing"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, db *gorm.DB, email string) *models.User {
	tb.Helper()
	u := &models.User{Name: "Learner", Email: email, Role: models.RoleUser}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, db *gorm.DB, slug string, certType courseModels.CertificateType) *courseModels.Course {
	tb.Helper()
	c := &courseModels.Course{Title: slug, Slug: slug, CertificateType: certType, IsPublished: true}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedModule(tb testing.TB, db *gorm.DB, courseID uint, order int, certifiable bool) *courseModels.Module {
	tb.Helper()
	m := &courseModels.Module{
		CourseID:    courseID,
		OrderIndex:  order,
		Title:       "module",
		IsPublished: true,
		Certifiable: certifiable,
	}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

// LessonOpt tweaks a lesson before it is stored.
type LessonOpt func(*courseModels.Lesson)

func Optional() LessonOpt    { return func(l *courseModels.Lesson) { l.IsOptional = true } }
func Unpublished() LessonOpt { return func(l *courseModels.Lesson) { l.IsPublished = false } }

func SeedLesson(tb testing.TB, db *gorm.DB, moduleID uint, order int, opts ...LessonOpt) *courseModels.Lesson {
	tb.Helper()
	l := &courseModels.Lesson{ModuleID: moduleID, OrderIndex: order, Title: "lesson", IsPublished: true}
	for _, opt := range opts {
		opt(l)
	}
	if err := db.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

// QuestionSeed describes one question: its points and which options are correct.
type QuestionSeed struct {
	Points  int
	Correct []bool
}

func SeedQuiz(tb testing.TB, db *gorm.DB, moduleID uint, passingScore int, maxAttempts *int, questions ...QuestionSeed) *courseModels.ModuleQuiz {
	tb.Helper()
	q := &courseModels.ModuleQuiz{
		ModuleID:     moduleID,
		Title:        "quiz",
		PassingScore: passingScore,
		MaxAttempts:  maxAttempts,
		IsRequired:   true,
	}
	for i, qs := range questions {
		question := courseModels.QuizQuestion{OrderIndex: i, Prompt: "question", Points: qs.Points}
		for j, correct := range qs.Correct {
			question.Answers = append(question.Answers, courseModels.QuizAnswer{OrderIndex: j, Text: "option", IsCorrect: correct})
		}
		q.Questions = append(q.Questions, question)
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return q
}

// CorrectAnswers picks the correct option ids of every question.
func CorrectAnswers(q *courseModels.ModuleQuiz) map[uint][]uint {
	out := make(map[uint][]uint, len(q.Questions))
	for _, question := range q.Questions {
		out[question.ID] = []uint{}
		for _, a := range question.Answers {
			if a.IsCorrect {
				out[question.ID] = append(out[question.ID], a.ID)
			}
		}
	}
	return out
}

func SeedSequence(tb testing.TB, db *gorm.DB, slug, trigger string, steps ...sequenceModels.SequenceEmail) *sequenceModels.Sequence {
	tb.Helper()
	s := &sequenceModels.Sequence{Slug: slug, Name: slug, TriggerType: trigger, IsActive: true}
	for i := range steps {
		steps[i].OrderIndex = i
		if steps[i].Subject == "" {
			steps[i].Subject = "step"
		}
	}
	s.Emails = steps
	if err := db.Create(s).Error; err != nil {
		tb.Fatalf("seed sequence: %v", err)
	}
	return s
}

// Step is an active sequence email with the given delay.
func Step(days, hours int) sequenceModels.SequenceEmail {
	return sequenceModels.SequenceEmail{DelayDays: days, DelayHours: hours, IsActive: true, BodyTemplate: "<p>Hi {{.Name}}</p>"}
}

func Date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}
