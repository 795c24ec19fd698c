package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizResult struct {
	Attempt           courseModels.QuizAttempt `json:"attempt"`
	Score             int                      `json:"score"`
	Passed            bool                     `json:"passed"`
	AttemptsRemaining *int                     `json:"attempts_remaining"` // nil when unlimited
	Module            *ModuleEvaluation        `json:"module,omitempty"`
}

// Score grades answers (question id -> selected answer ids). A question earns
// its points only when the selection equals its set of correct answers. The
// percentage is rounded half up; a quiz worth no points scores 0.
func Score(questions []courseModels.QuizQuestion, answers map[uint][]uint) int {
	total, earned := 0, 0
	for _, q := range questions {
		total += q.Points
		correct := make(map[uint]bool)
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct[a.ID] = true
			}
		}
		selected := make(map[uint]bool)
		for _, id := range answers[q.ID] {
			selected[id] = true
		}
		if len(selected) != len(correct) {
			continue
		}
		match := true
		for id := range selected {
			if !correct[id] {
				match = false
				break
			}
		}
		if match {
			earned += q.Points
		}
	}
	if total <= 0 {
		return 0
	}
	return (earned*200 + total) / (2 * total)
}

// EvaluateQuizAttempt grades and records an attempt, then re-evaluates the
// module when it passed. An attempt beyond maxAttempts is rejected unrecorded.
func (e *Engine) EvaluateQuizAttempt(ctx context.Context, userID, quizID uint, answers map[uint][]uint) (*QuizResult, error) {
	if _, err := e.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	var quiz courseModels.ModuleQuiz
	err := e.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("order_index") }).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB { return db.Order("order_index") }).
		First(&quiz, quizID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quiz", quizID)
		}
		return nil, apperr.Storage("load quiz", err)
	}

	result := &QuizResult{Score: Score(quiz.Questions, answers)}
	result.Passed = result.Score >= quiz.PassingScore

	snapshot, err := json.Marshal(answers)
	if err != nil {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "answers", Message: err.Error()}}}
	}

	now := e.now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The unique (user, quiz, attempt number) index settles concurrent
		// submissions; the loser recounts.
		for try := 0; try < 3; try++ {
			var used int64
			if err := tx.Model(&courseModels.QuizAttempt{}).
				Where("user_id = ? AND quiz_id = ?", userID, quiz.ID).
				Count(&used).Error; err != nil {
				return err
			}
			if quiz.MaxAttempts != nil && int(used) >= *quiz.MaxAttempts {
				return &apperr.AttemptLimitExceededError{QuizID: quiz.ID, MaxAttempts: *quiz.MaxAttempts, Attempts: int(used)}
			}

			attempt := courseModels.QuizAttempt{
				UserID:        userID,
				QuizID:        quiz.ID,
				AttemptNumber: int(used) + 1,
				Score:         result.Score,
				Passed:        result.Passed,
				Answers:       datatypes.JSON(snapshot),
				StartedAt:     now,
				CompletedAt:   &now,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&attempt)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				result.Attempt = attempt
				if quiz.MaxAttempts != nil {
					left := *quiz.MaxAttempts - attempt.AttemptNumber
					result.AttemptsRemaining = &left
				}
				return nil
			}
		}
		return fmt.Errorf("attempt number for quiz %d kept colliding", quiz.ID)
	})
	if err != nil {
		return nil, apperr.Storage("record quiz attempt", err)
	}

	e.log.Info("quiz attempt recorded", "user_id", userID, "quiz_id", quiz.ID, "score", result.Score, "passed", result.Passed)

	if result.Passed {
		if result.Module, err = e.EvaluateModuleCompletion(ctx, userID, quiz.ModuleID); err != nil {
			return nil, err
		}
	}
	return result, nil
}
