package courseValidator

import (
	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/progress"
)

func LessonID() fiber.Handler {
	return paramID("lesson_id", "Lesson ID", "lessonID")
}

// LessonVisit validates the time tracking body of a lesson visit. An empty
// body is a visit with no tracked time.
func LessonVisit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			TimeSpent int `json:"time_spent"`
			WatchTime int `json:"watch_time"`
		})

		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		errors := make(map[string]string)
		if reqData.TimeSpent < 0 {
			errors["time_spent"] = "Time spent cannot be negative!"
		}
		if reqData.WatchTime < 0 {
			errors["watch_time"] = "Watch time cannot be negative!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedVisit", progress.LessonVisit{TimeSpent: reqData.TimeSpent, WatchTime: reqData.WatchTime})
		return c.Next()
	}
}

// SubmitQuiz validates a quiz submission. Answers map question ids to the
// selected answer ids; unanswered questions may be left out.
func SubmitQuiz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		quizID, err := parseID(c, "quiz_id", "Quiz ID")
		if quizID == 0 {
			return err
		}

		reqData := new(struct {
			Answers map[uint][]uint `json:"answers"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		c.Locals("quizID", quizID)
		c.Locals("validatedAnswers", reqData.Answers)
		return c.Next()
	}
}
