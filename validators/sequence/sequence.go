package sequenceValidator

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/sequence"
)

// RunSequences accepts an optional {"at": RFC3339} body to run as of a given
// instant. The zero time means now.
func RunSequences() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			At *time.Time `json:"at"`
		})

		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		var at time.Time
		if reqData.At != nil {
			at = *reqData.At
		}
		c.Locals("runAt", at)
		return c.Next()
	}
}

// SequenceEvent validates a lifecycle event raised by an admin or another service.
func SequenceEvent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Name       string            `json:"name" validate:"required,oneof=user.registered user.neverLoggedIn user.abandonedLearning course.enrolled module.completed course.completed certificate.issued mini_diploma.completed"`
			UserID     uint              `json:"user_id" validate:"required"`
			CourseID   uint              `json:"course_id"`
			OccurredAt *time.Time        `json:"occurred_at"`
			Attrs      map[string]string `json:"attrs"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if err := apperr.ValidateStruct(reqData); err != nil {
			return middleware.ErrorResponse(c, err)
		}
		if v, ok := reqData.Attrs["after_days"]; ok {
			if n, err := strconv.Atoi(v); err != nil || n < 0 {
				return middleware.ValidationErrorResponse(c, map[string]string{"attrs.after_days": "After days must be a non-negative number!"})
			}
		}

		ev := lifecycle.Event{
			Name:     reqData.Name,
			UserID:   reqData.UserID,
			CourseID: reqData.CourseID,
			Attrs:    reqData.Attrs,
		}
		if reqData.OccurredAt != nil {
			ev.OccurredAt = *reqData.OccurredAt
		}
		c.Locals("validatedEvent", ev)
		return c.Next()
	}
}

// EmailWebhook validates a reply or click reported by the mail provider.
// The :type param is reply or click.
func EmailWebhook() fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := strings.ToUpper(strings.TrimSpace(c.Params("type")))
		if kind != sequenceModels.EventReply && kind != sequenceModels.EventClick {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Unknown event type!", nil)
		}

		reqData := new(struct {
			UserID          uint       `json:"user_id" validate:"required"`
			SequenceID      uint       `json:"sequence_id" validate:"required_without=SequenceEmailID"`
			SequenceEmailID *uint      `json:"sequence_email_id"`
			OccurredAt      *time.Time `json:"occurred_at"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if err := apperr.ValidateStruct(reqData); err != nil {
			return middleware.ErrorResponse(c, err)
		}

		in := sequence.EmailEventInput{
			UserID:          reqData.UserID,
			SequenceID:      reqData.SequenceID,
			SequenceEmailID: reqData.SequenceEmailID,
			Type:            kind,
		}
		if reqData.OccurredAt != nil {
			in.OccurredAt = *reqData.OccurredAt
		}
		c.Locals("validatedEmailEvent", in)
		return c.Next()
	}
}
