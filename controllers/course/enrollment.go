package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
)

func (cc *CourseController) EnrollInCourse(c *fiber.Ctx) error {
	// Retrieve userId from JWT middleware
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Retrieve validated course ID
	courseID := c.Locals("courseID").(uint)

	enrollment, created, err := cc.Engine.EnrollUser(c.UserContext(), userID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !created {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "User already enrolled in this course!", enrollment)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled in course successfully!", enrollment)
}

func (cc *CourseController) GetUserEnrollments(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollments, err := cc.Engine.ListEnrollments(c.UserContext(), userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": enrollments,
	})
}
