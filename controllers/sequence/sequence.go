package sequenceController

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/sequence"
)

type SequenceController struct {
	Scheduler *sequence.Scheduler
	// Events receives lifecycle events published through the admin API.
	Events lifecycle.Notifier
	Now    func() time.Time
}

func NewSequenceController(s *sequence.Scheduler, events lifecycle.Notifier) *SequenceController {
	return &SequenceController{Scheduler: s, Events: events, Now: time.Now}
}

// AdminRunSequences dispatches every due step now, outside the cron schedule.
func (sc *SequenceController) AdminRunSequences(c *fiber.Ctx) error {
	at := c.Locals("runAt").(time.Time)
	if at.IsZero() {
		at = sc.Now()
	}

	report, err := sc.Scheduler.RunDue(c.UserContext(), at)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Sequence run completed!", report)
}

func (sc *SequenceController) AdminPublishEvent(c *fiber.Ctx) error {
	ev := c.Locals("validatedEvent").(lifecycle.Event)
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = sc.Now()
	}

	if err := sc.Events.Notify(c.UserContext(), ev); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusAccepted, true, "Event published!", fiber.Map{
		"name":    ev.Name,
		"user_id": ev.UserID,
	})
}

// EmailWebhook records a reply or click. Sequences configured to stop on it
// exit immediately.
func (sc *SequenceController) EmailWebhook(c *fiber.Ctx) error {
	in := c.Locals("validatedEmailEvent").(sequence.EmailEventInput)

	event, err := sc.Scheduler.RecordEmailEvent(c.UserContext(), in)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Event recorded!", event)
}
