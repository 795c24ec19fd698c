package leadValidator

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/tagging"
)

// CaptureLead validates a landing page opt-in.
func CaptureLead() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(tagging.LeadInput)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Email = strings.TrimSpace(reqData.Email)
		if err := apperr.ValidateStruct(reqData); err != nil {
			return middleware.ErrorResponse(c, err)
		}

		c.Locals("validatedLead", reqData)
		return c.Next()
	}
}
