package courseValidator

import (
	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/content"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
)

// ResetProgress validates :course_id and :user_id.
func ResetProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, err := parseID(c, "course_id", "Course ID")
		if courseID == 0 {
			return err
		}
		userID, err := parseID(c, "user_id", "User ID")
		if userID == 0 {
			return err
		}

		c.Locals("courseID", courseID)
		c.Locals("targetUserID", userID)
		return c.Next()
	}
}

// ImportContent parses the YAML bundle in the request body.
func ImportContent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(c.Body()) == 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Bundle is required!", nil)
		}

		bundle, err := content.ParseBytes(c.Body())
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}

		c.Locals("validatedBundle", bundle)
		return c.Next()
	}
}
