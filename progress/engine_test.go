package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/testutil"
	"gorm.io/gorm"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (r *eventRecorder) Notify(ctx context.Context, ev lifecycle.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Name)
	}
	return out
}

type fixture struct {
	db     *gorm.DB
	engine *Engine
	clock  *testutil.Clock
	events *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:     testutil.DB(t),
		clock:  testutil.NewClock(testutil.Date(2025, time.March, 3, 9)),
		events: &eventRecorder{},
	}
	f.engine = NewEngine(f.db, testutil.Logger(t), WithClock(f.clock.Now), WithNotifier(f.events))
	return f
}

func intPtr(v int) *int { return &v }

func countCertificates(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&courseModels.Certificate{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestRecordLessonCompletionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	l1 := testutil.SeedLesson(t, f.db, module.ID, 1)
	testutil.SeedLesson(t, f.db, module.ID, 2)

	first, err := f.engine.RecordLessonCompletion(ctx, user.ID, l1.ID)
	require.NoError(t, err)
	assert.True(t, first.NewlyCompleted)
	require.NotNil(t, first.Progress.CompletedAt)
	firstAt := *first.Progress.CompletedAt

	f.clock.Advance(48 * time.Hour)
	again, err := f.engine.RecordLessonCompletion(ctx, user.ID, l1.ID)
	require.NoError(t, err)
	assert.False(t, again.NewlyCompleted)
	require.NotNil(t, again.Progress.CompletedAt)
	assert.True(t, firstAt.Equal(*again.Progress.CompletedAt))
	assert.Equal(t, 50.0, again.CourseProgress)
}

func TestRecordLessonCompletionEnrollsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	l1 := testutil.SeedLesson(t, f.db, module.ID, 1)
	l2 := testutil.SeedLesson(t, f.db, module.ID, 2)
	testutil.SeedLesson(t, f.db, module.ID, 3)
	testutil.SeedLesson(t, f.db, module.ID, 4, testutil.Unpublished())

	_, err := f.engine.RecordLessonCompletion(ctx, user.ID, l1.ID)
	require.NoError(t, err)
	res, err := f.engine.RecordLessonCompletion(ctx, user.ID, l2.ID)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, res.CourseProgress, 0.001)

	var enrollment courseModels.Enrollment
	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, courseModels.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 2, enrollment.CompletedLessons)
	assert.Equal(t, 3, enrollment.TotalLessons)

	assert.Equal(t, []string{lifecycle.CourseEnrolled}, f.events.names())
}

func TestRecordLessonCompletionNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	hidden := testutil.SeedLesson(t, f.db, module.ID, 1, testutil.Unpublished())

	_, err := f.engine.RecordLessonCompletion(ctx, user.ID, 9999)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.engine.RecordLessonCompletion(ctx, user.ID, hidden.ID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.engine.RecordLessonCompletion(ctx, 4242, hidden.ID)
	assert.True(t, apperr.IsNotFound(err))

	var rows int64
	require.NoError(t, f.db.Model(&courseModels.LessonProgress{}).Count(&rows).Error)
	assert.Zero(t, rows)
	require.NoError(t, f.db.Model(&courseModels.Enrollment{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestModuleCompletionWaitsForPassingQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCertification)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	l1 := testutil.SeedLesson(t, f.db, module.ID, 1)
	l2 := testutil.SeedLesson(t, f.db, module.ID, 2)
	other := testutil.SeedModule(t, f.db, course.ID, 2, true)
	testutil.SeedLesson(t, f.db, other.ID, 1)
	quiz := testutil.SeedQuiz(t, f.db, module.ID, 70, nil,
		testutil.QuestionSeed{Points: 15, Correct: []bool{true, false}},
		testutil.QuestionSeed{Points: 45, Correct: []bool{false, true}},
		testutil.QuestionSeed{Points: 25, Correct: []bool{true, false}},
		testutil.QuestionSeed{Points: 15, Correct: []bool{true, true}},
	)
	correct := testutil.CorrectAnswers(quiz)
	q := quiz.Questions

	_, err := f.engine.RecordLessonCompletion(ctx, user.ID, l1.ID)
	require.NoError(t, err)
	res, err := f.engine.RecordLessonCompletion(ctx, user.ID, l2.ID)
	require.NoError(t, err)
	assert.False(t, res.Module.Completed)

	// 45 + 15 of 100 points.
	failing := map[uint][]uint{q[1].ID: correct[q[1].ID], q[3].ID: correct[q[3].ID]}
	attempt, err := f.engine.EvaluateQuizAttempt(ctx, user.ID, quiz.ID, failing)
	require.NoError(t, err)
	assert.Equal(t, 60, attempt.Score)
	assert.False(t, attempt.Passed)
	assert.Nil(t, attempt.Module)

	var mp []courseModels.ModuleProgress
	require.NoError(t, f.db.Where("user_id = ? AND module_id = ?", user.ID, module.ID).Find(&mp).Error)
	assert.Empty(t, mp)
	assert.Zero(t, countCertificates(t, f.db, user.ID))

	// 15 + 45 + 15 of 100 points.
	passing := map[uint][]uint{q[0].ID: correct[q[0].ID], q[1].ID: correct[q[1].ID], q[3].ID: correct[q[3].ID]}
	attempt, err = f.engine.EvaluateQuizAttempt(ctx, user.ID, quiz.ID, passing)
	require.NoError(t, err)
	assert.Equal(t, 75, attempt.Score)
	assert.True(t, attempt.Passed)
	require.NotNil(t, attempt.Module)
	assert.True(t, attempt.Module.Completed)
	assert.True(t, attempt.Module.NewlyCompleted)
	require.NotNil(t, attempt.Module.Certificate)
	assert.Equal(t, 75, attempt.Module.Certificate.Score)
	assert.Equal(t, courseModels.CertificateCertification, attempt.Module.Certificate.Type)
	require.NotNil(t, attempt.Module.Certificate.ModuleID)
	assert.Equal(t, module.ID, *attempt.Module.Certificate.ModuleID)
	assert.False(t, attempt.Module.Course.Completed)

	require.NoError(t, f.db.Where("user_id = ? AND module_id = ?", user.ID, module.ID).Find(&mp).Error)
	require.Len(t, mp, 1)
	assert.True(t, mp[0].IsCompleted)
	assert.NotNil(t, mp[0].CompletedAt)
	assert.Equal(t, int64(1), countCertificates(t, f.db, user.ID))
	assert.Contains(t, f.events.names(), lifecycle.ModuleCompleted)
	assert.Contains(t, f.events.names(), lifecycle.CertificateIssued)
}

func TestOptionalLessonsAndNonCertifiableModules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "orientation-first", courseModels.CertificateCompletion)
	orientation := testutil.SeedModule(t, f.db, course.ID, 0, false)
	l1 := testutil.SeedLesson(t, f.db, orientation.ID, 1)
	testutil.SeedLesson(t, f.db, orientation.ID, 2, testutil.Optional())
	next := testutil.SeedModule(t, f.db, course.ID, 1, true)
	testutil.SeedLesson(t, f.db, next.ID, 1)

	res, err := f.engine.RecordLessonCompletion(ctx, user.ID, l1.ID)
	require.NoError(t, err)
	assert.True(t, res.Module.Completed)
	assert.Nil(t, res.Module.Certificate)
	assert.Zero(t, countCertificates(t, f.db, user.ID))
	assert.InDelta(t, 33.33, res.CourseProgress, 0.001)
}

func TestCourseCompletionRequiresEveryModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "functional-medicine", courseModels.CertificateCertification)

	var lessons []*courseModels.Lesson
	var quiz *courseModels.ModuleQuiz
	for i := 1; i <= 3; i++ {
		m := testutil.SeedModule(t, f.db, course.ID, i, true)
		lessons = append(lessons, testutil.SeedLesson(t, f.db, m.ID, 1))
		if i == 3 {
			quiz = testutil.SeedQuiz(t, f.db, m.ID, 70, nil, testutil.QuestionSeed{Points: 1, Correct: []bool{true, false}})
		}
	}

	for _, l := range lessons {
		_, err := f.engine.RecordLessonCompletion(ctx, user.ID, l.ID)
		require.NoError(t, err)
	}

	eval, err := f.engine.EvaluateCourseCompletion(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, eval.Completed)

	var enrollment courseModels.Enrollment
	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, courseModels.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 100.0, enrollment.Progress)
	assert.Nil(t, enrollment.CompletedAt)
	assert.Equal(t, int64(2), countCertificates(t, f.db, user.ID))

	res, err := f.engine.EvaluateQuizAttempt(ctx, user.ID, quiz.ID, testutil.CorrectAnswers(quiz))
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	require.NotNil(t, res.Module)
	require.NotNil(t, res.Module.Course)
	assert.True(t, res.Module.Course.Completed)
	assert.True(t, res.Module.Course.NewlyCompleted)
	require.NotNil(t, res.Module.Course.Certificate)
	assert.Nil(t, res.Module.Course.Certificate.ModuleID)

	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, enrollment.Status)
	assert.Equal(t, 100.0, enrollment.Progress)
	assert.NotNil(t, enrollment.CompletedAt)

	var courseCerts int64
	require.NoError(t, f.db.Model(&courseModels.Certificate{}).
		Where("user_id = ? AND course_id = ? AND module_id IS NULL", user.ID, course.ID).
		Count(&courseCerts).Error)
	assert.Equal(t, int64(1), courseCerts)
	assert.Equal(t, int64(4), countCertificates(t, f.db, user.ID))
	assert.Contains(t, f.events.names(), lifecycle.CourseCompleted)

	again, err := f.engine.EvaluateCourseCompletion(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, again.Completed)
	assert.False(t, again.NewlyCompleted)
	assert.Nil(t, again.Certificate)
	assert.Equal(t, int64(4), countCertificates(t, f.db, user.ID))
}

func TestMiniDiplomaCompletionEmitsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "gut-health-mini", courseModels.CertificateMiniDiploma)
	module := testutil.SeedModule(t, f.db, course.ID, 1, false)
	lesson := testutil.SeedLesson(t, f.db, module.ID, 1)

	res, err := f.engine.RecordLessonCompletion(ctx, user.ID, lesson.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Module.Course)
	require.NotNil(t, res.Module.Course.Certificate)
	assert.Equal(t, courseModels.CertificateMiniDiploma, res.Module.Course.Certificate.Type)
	assert.Equal(t, []string{
		lifecycle.CourseEnrolled,
		lifecycle.ModuleCompleted,
		lifecycle.CourseCompleted,
		lifecycle.MiniDiplomaCompleted,
		lifecycle.CertificateIssued,
	}, f.events.names())
}

func TestConcurrentEvaluationIssuesOneCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	other := testutil.SeedModule(t, f.db, course.ID, 2, true)
	testutil.SeedLesson(t, f.db, other.ID, 1)
	lesson := testutil.SeedLesson(t, f.db, module.ID, 1)
	require.NoError(t, f.db.Create(&courseModels.LessonProgress{
		UserID: user.ID, LessonID: lesson.ID, IsCompleted: true, CompletedAt: &time.Time{},
	}).Error)

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	issued := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eval, err := f.engine.EvaluateModuleCompletion(ctx, user.ID, module.ID)
			assert.NoError(t, err)
			if eval != nil && eval.Certificate != nil {
				mu.Lock()
				issued++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, issued)
	assert.Equal(t, int64(1), countCertificates(t, f.db, user.ID))
}

func TestCertificateNumberCollisionRetriesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	calls := 0
	numbers := []string{"ASI-DUP", "ASI-DUP", "ASI-FRESH"}
	engine := NewEngine(f.db, testutil.Logger(t), WithClock(f.clock.Now), WithCertificateNumbers(func(time.Time) string {
		n := numbers[calls%len(numbers)]
		calls++
		return n
	}))

	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	a := testutil.SeedUser(t, f.db, "a@example.com")
	b := testutil.SeedUser(t, f.db, "b@example.com")
	now := f.clock.Now()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		first, err := engine.issueCertificate(tx, a.ID, course, &module.ID, 90, now)
		require.NoError(t, err)
		assert.Equal(t, "ASI-DUP", first.CertificateNumber)

		second, err := engine.issueCertificate(tx, b.ID, course, &module.ID, 90, now)
		require.NoError(t, err)
		assert.Equal(t, "ASI-FRESH", second.CertificateNumber)

		_, err = engine.issueCertificate(tx, a.ID, course, &module.ID, 90, now)
		assert.ErrorIs(t, err, apperr.ErrDuplicateIssuance)
		return nil
	})
	require.NoError(t, err)

	// Two collisions in a row fail the step and roll it back.
	stuck := NewEngine(f.db, testutil.Logger(t), WithClock(f.clock.Now), WithCertificateNumbers(func(time.Time) string { return "ASI-DUP" }))
	c := testutil.SeedUser(t, f.db, "c@example.com")
	_, err = stuck.EvaluateModuleCompletion(ctx, c.ID, module.ID)
	assert.True(t, apperr.IsStorage(err))

	var rows int64
	require.NoError(t, f.db.Model(&courseModels.ModuleProgress{}).Where("user_id = ?", c.ID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestNewCertificateNumberFormat(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	n := NewCertificateNumber(at)
	assert.Regexp(t, `^ASI-[0-9A-Z]+-[0-9A-F]{6}$`, n)
	assert.NotEqual(t, n, NewCertificateNumber(at))
}

func TestEnrollUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	testutil.SeedLesson(t, f.db, module.ID, 1)

	enrollment, created, err := f.engine.EnrollUser(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, enrollment.TotalLessons)

	_, created, err = f.engine.EnrollUser(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{lifecycle.CourseEnrolled}, f.events.names())

	draft := &courseModels.Course{Slug: "draft", Title: "Draft", CertificateType: courseModels.CertificateCompletion}
	require.NoError(t, f.db.Create(draft).Error)
	_, _, err = f.engine.EnrollUser(ctx, user.ID, draft.ID)
	assert.True(t, apperr.IsNotFound(err))
}
