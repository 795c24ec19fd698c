package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
)

// GetUserCertificates gets all certificates for the current user
func (cc *CourseController) GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	certificates, err := cc.Engine.ListCertificates(c.UserContext(), userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": certificates,
	})
}
