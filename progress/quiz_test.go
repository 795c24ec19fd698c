package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/testutil"
)

func question(id uint, points int, answers ...courseModels.QuizAnswer) courseModels.QuizQuestion {
	q := courseModels.QuizQuestion{Points: points, Answers: answers}
	q.ID = id
	return q
}

func answer(id uint, correct bool) courseModels.QuizAnswer {
	a := courseModels.QuizAnswer{IsCorrect: correct}
	a.ID = id
	return a
}

func TestScore(t *testing.T) {
	questions := []courseModels.QuizQuestion{
		question(1, 1, answer(10, true), answer(11, false)),
		question(2, 1, answer(20, true), answer(21, true), answer(22, false)),
		question(3, 1, answer(30, false), answer(31, true)),
	}

	tests := []struct {
		name    string
		answers map[uint][]uint
		want    int
	}{
		{"all correct", map[uint][]uint{1: {10}, 2: {20, 21}, 3: {31}}, 100},
		{"nothing answered", map[uint][]uint{}, 0},
		{"partial multi-select earns nothing", map[uint][]uint{1: {10}, 2: {20}, 3: {31}}, 67},
		{"extra selection earns nothing", map[uint][]uint{1: {10, 11}, 2: {20, 21}}, 33},
		{"duplicate ids count once", map[uint][]uint{1: {10, 10}, 2: {21, 20}, 3: {31}}, 100},
		{"unknown question ignored", map[uint][]uint{99: {1}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(questions, tt.answers))
		})
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	// 1 of 8 points is 12.5%.
	questions := []courseModels.QuizQuestion{
		question(1, 1, answer(10, true)),
		question(2, 7, answer(20, true)),
	}
	assert.Equal(t, 13, Score(questions, map[uint][]uint{1: {10}}))
	assert.Equal(t, 88, Score(questions, map[uint][]uint{2: {20}}))
	assert.Equal(t, 0, Score(nil, map[uint][]uint{1: {10}}))
}

func TestQuizPassesAtExactlyPassingScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)

	var seeds []testutil.QuestionSeed
	for i := 0; i < 10; i++ {
		seeds = append(seeds, testutil.QuestionSeed{Points: 1, Correct: []bool{true, false}})
	}
	quiz := testutil.SeedQuiz(t, f.db, module.ID, 70, nil, seeds...)
	correct := testutil.CorrectAnswers(quiz)
	answers := map[uint][]uint{}
	for _, q := range quiz.Questions[:7] {
		answers[q.ID] = correct[q.ID]
	}

	res, err := f.engine.EvaluateQuizAttempt(ctx, user.ID, quiz.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 70, res.Score)
	assert.True(t, res.Passed)
	assert.Equal(t, 1, res.Attempt.AttemptNumber)
	assert.Nil(t, res.AttemptsRemaining)
	require.NotNil(t, res.Module)
	assert.True(t, res.Module.Completed)
}

func TestQuizAttemptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	course := testutil.SeedCourse(t, f.db, "herbalism", courseModels.CertificateCompletion)
	module := testutil.SeedModule(t, f.db, course.ID, 1, true)
	quiz := testutil.SeedQuiz(t, f.db, module.ID, 70, intPtr(2), testutil.QuestionSeed{Points: 1, Correct: []bool{true, false}})

	wrong := map[uint][]uint{quiz.Questions[0].ID: {quiz.Questions[0].Answers[1].ID}}
	for i := 1; i <= 2; i++ {
		res, err := f.engine.EvaluateQuizAttempt(ctx, user.ID, quiz.ID, wrong)
		require.NoError(t, err)
		assert.False(t, res.Passed)
		assert.Equal(t, i, res.Attempt.AttemptNumber)
		require.NotNil(t, res.AttemptsRemaining)
		assert.Equal(t, 2-i, *res.AttemptsRemaining)
	}

	_, err := f.engine.EvaluateQuizAttempt(ctx, user.ID, quiz.ID, testutil.CorrectAnswers(quiz))
	require.Error(t, err)
	assert.True(t, apperr.IsAttemptLimit(err))
	var limit *apperr.AttemptLimitExceededError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 2, limit.MaxAttempts)
	assert.Equal(t, 2, limit.Attempts)

	var attempts int64
	require.NoError(t, f.db.Model(&courseModels.QuizAttempt{}).Where("user_id = ? AND quiz_id = ?", user.ID, quiz.ID).Count(&attempts).Error)
	assert.Equal(t, int64(2), attempts)

	// Another learner has their own budget.
	other := testutil.SeedUser(t, f.db, "grace@example.com")
	_, err = f.engine.EvaluateQuizAttempt(ctx, other.ID, quiz.ID, wrong)
	assert.NoError(t, err)
}

func TestQuizNotFound(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	_, err := f.engine.EvaluateQuizAttempt(context.Background(), user.ID, 404, nil)
	assert.True(t, apperr.IsNotFound(err))
}
