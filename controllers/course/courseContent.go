package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/progress"
)

// GetUserProgress returns the module and lesson breakdown of one course.
func (cc *CourseController) GetUserProgress(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(uint)

	view, err := cc.Engine.CourseProgress(c.UserContext(), userID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", view)
}

func (cc *CourseController) RecordLessonVisit(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(uint)
	visit := c.Locals("validatedVisit").(progress.LessonVisit)

	lp, err := cc.Engine.RecordLessonVisit(c.UserContext(), userID, lessonID, visit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson visit recorded!", lp)
}

// MarkLessonComplete records completion and cascades into module and course
// evaluation. Repeating it is harmless.
func (cc *CourseController) MarkLessonComplete(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(uint)

	result, err := cc.Engine.RecordLessonCompletion(c.UserContext(), userID, lessonID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	message := "Lesson marked as complete!"
	if !result.NewlyCompleted {
		message = "Lesson already completed!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

func (cc *CourseController) SubmitQuiz(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	quizID := c.Locals("quizID").(uint)
	answers := c.Locals("validatedAnswers").(map[uint][]uint)

	result, err := cc.Engine.EvaluateQuizAttempt(c.UserContext(), userID, quizID, answers)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	message := "Quiz submitted. Keep studying and try again!"
	if result.Passed {
		message = "Quiz passed!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}
