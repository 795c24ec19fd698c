package leadController

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/tagging"
)

type LeadController struct {
	Tags   *tagging.Service
	Events lifecycle.Notifier
	Log    *logger.Logger
	Now    func() time.Time
}

func NewLeadController(tags *tagging.Service, events lifecycle.Notifier, log *logger.Logger) *LeadController {
	return &LeadController{Tags: tags, Events: events, Log: log.With("controller", "lead"), Now: time.Now}
}

// CaptureLead registers a mini diploma or landing page opt-in. New users
// raise user.registered, which starts the welcome sequences.
func (lc *LeadController) CaptureLead(c *fiber.Ctx) error {
	in := c.Locals("validatedLead").(*tagging.LeadInput)

	user, created, err := lc.Tags.CaptureLead(c.UserContext(), *in)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	data := fiber.Map{"user_id": user.ID, "created": created}
	if !created {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Welcome back!", data)
	}

	ev := lifecycle.Event{
		Name:       lifecycle.UserRegistered,
		UserID:     user.ID,
		OccurredAt: lc.Now(),
		Attrs:      map[string]string{},
	}
	if user.Source != "" {
		ev.Attrs["source"] = user.Source
	}
	if in.Landing != "" {
		ev.Attrs["landing"] = in.Landing
	}
	// The lead is stored either way; a missed welcome sequence is only logged.
	if err := lc.Events.Notify(c.UserContext(), ev); err != nil {
		lc.Log.Error("user.registered delivery failed", "user_id", user.ID, "error", err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lead captured successfully!", data)
}

// AdminUsersWithTag lists the users in a segment.
func (lc *LeadController) AdminUsersWithTag(c *fiber.Ctx) error {
	tag, err := url.PathUnescape(c.Params("tag"))
	if err != nil || strings.TrimSpace(tag) == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid tag!", nil)
	}

	userIDs, err := lc.Tags.UsersWithTag(c.UserContext(), tag)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Segment fetched successfully!", fiber.Map{
		"tag":      strings.ToLower(tag),
		"user_ids": userIDs,
		"total":    len(userIDs),
	})
}
