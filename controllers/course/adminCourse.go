package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/content"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
)

// AdminResetProgress wipes one learner's progress in a course so they can retake it.
func (cc *CourseController) AdminResetProgress(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)
	userID := c.Locals("targetUserID").(uint)

	report, err := cc.Engine.ResetUserProgress(c.UserContext(), userID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress reset successfully!", report)
}

func (cc *CourseController) AdminImportContent(c *fiber.Ctx) error {
	bundle := c.Locals("validatedBundle").(*content.Bundle)

	report, err := cc.Importer.Import(c.UserContext(), bundle)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Content imported successfully!", report)
}
