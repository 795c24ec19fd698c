package courseValidator

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
)

// parseID reads a positive numeric route param. The error is the response
// already written to c.
func parseID(c *fiber.Ctx, param, label string) (uint, error) {
	raw := strings.TrimSpace(c.Params(param))
	if raw == "" {
		return 0, middleware.JsonResponse(c, fiber.StatusBadRequest, false, label+" is required!", nil)
	}

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+label+"!", nil)
	}
	return uint(id), nil
}

// paramID validates one route param and stores it in c.Locals(key).
func paramID(param, label, key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, param, label)
		if id == 0 {
			return err
		}

		c.Locals(key, id)
		return c.Next()
	}
}
